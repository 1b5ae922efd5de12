// Package allocation decides whether a user may take a spot in a shared
// listing and commits the decision atomically.
//
// A listing holds up to Capacity occupants. The first booker fixes the
// listing's occupant gender; until the listing empties again, only bookers
// declaring that gender are accepted. A user holds at most one confirmed
// booking per listing.
package allocation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
)

// Listings reads listing state.
type Listings interface {
	GetByID(ctx context.Context, id string) (*model.Listing, error)
}

// Ledger is the booking store. Reserve and Release must apply the listing
// counter change and the booking row change as one unit, and Reserve must
// re-check capacity, gender and bookability at write time, reporting a
// failed re-check as repository.ErrLostRace.
type Ledger interface {
	FindActive(ctx context.Context, listingID, userID string) (*model.Booking, error)
	Reserve(ctx context.Context, b *model.Booking) (*model.Occupancy, error)
	Release(ctx context.Context, bookingID, userID string, now time.Time) (*model.Booking, *model.Occupancy, error)
}

// Request is one booking attempt.
type Request struct {
	ListingID string
	UserID    string
	Gender    model.Gender
}

// Allocation is the outcome of a successful booking or cancellation: the
// affected booking and the listing counters right after the write.
type Allocation struct {
	Booking   model.Booking
	Occupancy model.Occupancy
}

// Engine enforces capacity and gender-cohabitation rules on bookings.
type Engine struct {
	listings Listings
	ledger   Ledger
	now      func() time.Time
	newID    func() string
}

// NewEngine constructs an Engine over the given stores.
func NewEngine(listings Listings, ledger Ledger) *Engine {
	return &Engine{
		listings: listings,
		ledger:   ledger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// RequestBooking books one spot of req.ListingID for req.UserID.
//
// Every failure is returned as *Error; storage errors never escape raw. On
// failure nothing has been written. The engine does not retry: a lost race
// is re-read and reported as the rule that now rejects the request, or as
// KindPersistenceFailure when the fresh state would accept it.
func (e *Engine) RequestBooking(ctx context.Context, req Request) (*Allocation, error) {
	req.ListingID = strings.TrimSpace(req.ListingID)
	if req.UserID == "" {
		return nil, invalidRequest("You must be logged in to book.")
	}
	if req.ListingID == "" {
		return nil, invalidRequest("A listing id is required.")
	}
	gender, err := model.ParseGender(string(req.Gender))
	if err != nil {
		return nil, invalidRequest("Gender must be Male or Female.")
	}
	req.Gender = gender

	listing, err := e.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound()
		}
		return nil, persistenceFailure(err)
	}
	if !listing.Bookable() {
		return nil, notFound()
	}

	if _, err := e.ledger.FindActive(ctx, req.ListingID, req.UserID); err == nil {
		return nil, alreadyBooked()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistenceFailure(err)
	}

	if rejection := evaluate(listing, req.Gender); rejection != nil {
		return nil, rejection
	}

	booking := model.Booking{
		ID:        e.newID(),
		ListingID: req.ListingID,
		UserID:    req.UserID,
		Gender:    req.Gender,
		Status:    model.BookingConfirmed,
		CreatedAt: e.now(),
	}
	occ, err := e.ledger.Reserve(ctx, &booking)
	switch {
	case err == nil:
		return &Allocation{Booking: booking, Occupancy: *occ}, nil
	case errors.Is(err, repository.ErrAlreadyBooked):
		return nil, alreadyBooked()
	case errors.Is(err, repository.ErrLostRace):
		return nil, e.reclassify(ctx, req, err)
	default:
		return nil, persistenceFailure(err)
	}
}

// CancelBooking cancels userID's confirmed booking and frees its spot. When
// the listing empties, its occupant gender is cleared.
func (e *Engine) CancelBooking(ctx context.Context, bookingID, userID string) (*Allocation, error) {
	if userID == "" {
		return nil, invalidRequest("You must be logged in to cancel a booking.")
	}
	if strings.TrimSpace(bookingID) == "" {
		return nil, invalidRequest("A booking id is required.")
	}
	b, occ, err := e.ledger.Release(ctx, bookingID, userID, e.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: KindNotFound, Message: "Booking not found."}
		}
		return nil, persistenceFailure(err)
	}
	return &Allocation{Booking: *b, Occupancy: *occ}, nil
}

// evaluate applies the capacity and cohabitation rules to a listing snapshot.
func evaluate(l *model.Listing, gender model.Gender) *Error {
	if l.IsFull() {
		return full()
	}
	if l.SpotsFilled > 0 && l.OccupantsGender != nil && *l.OccupantsGender != gender {
		return genderMismatch(*l.OccupantsGender)
	}
	return nil
}

// reclassify explains a lost race from a fresh read of the listing.
func (e *Engine) reclassify(ctx context.Context, req Request, cause error) *Error {
	listing, err := e.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound()
		}
		return persistenceFailure(cause)
	}
	if !listing.Bookable() {
		return notFound()
	}
	if _, err := e.ledger.FindActive(ctx, req.ListingID, req.UserID); err == nil {
		return alreadyBooked()
	}
	if rejection := evaluate(listing, req.Gender); rejection != nil {
		return rejection
	}
	return persistenceFailure(cause)
}
