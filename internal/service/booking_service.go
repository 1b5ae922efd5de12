package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/student-housing/internal/allocation"
	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/obs"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
)

// BookingService fronts the allocation engine: it records metrics, keeps
// the listing cache honest and serves the booking read models.
type BookingService struct {
	engine   *allocation.Engine
	listings ListingStore
	bookings BookingStore
	cache    ListingCache
	metrics  *obs.Metrics
	logger   *slog.Logger
}

// NewBookingService constructs a BookingService. The engine reads listings
// from the store directly; the cache is only invalidated here.
func NewBookingService(listings ListingStore, bookings BookingStore, cache ListingCache, metrics *obs.Metrics, logger *slog.Logger) *BookingService {
	return &BookingService{
		engine:   allocation.NewEngine(listings, bookings),
		listings: listings,
		bookings: bookings,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Book requests one spot of listingID for userID. The returned error, if
// any, is always an *allocation.Error.
func (s *BookingService) Book(ctx context.Context, userID, listingID string, req model.BookingRequest) (*allocation.Allocation, error) {
	alloc, err := s.engine.RequestBooking(ctx, allocation.Request{
		ListingID: listingID,
		UserID:    userID,
		Gender:    model.Gender(req.Gender),
	})
	kind := allocation.KindOf(err)
	s.metrics.BookingAttempts.WithLabelValues(outcomeLabel(kind)).Inc()

	if err != nil {
		// kind and ids only; the engine error may carry a storage cause
		if kind == allocation.KindPersistenceFailure {
			s.logger.Error("booking failed", "kind", kind, "listing_id", listingID, "user_id", userID)
		} else {
			s.logger.Info("booking rejected", "kind", kind, "listing_id", listingID, "user_id", userID)
		}
		return nil, err
	}

	s.invalidate(ctx, listingID)
	s.logger.Info("booking confirmed",
		"booking_id", alloc.Booking.ID,
		"listing_id", listingID,
		"user_id", userID,
		"spots_filled", alloc.Occupancy.SpotsFilled,
		"capacity", alloc.Occupancy.Capacity,
	)
	return alloc, nil
}

// Cancel releases the caller's booking.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID string) (*allocation.Allocation, error) {
	alloc, err := s.engine.CancelBooking(ctx, bookingID, userID)
	if err != nil {
		s.logger.Info("cancellation rejected", "kind", allocation.KindOf(err), "booking_id", bookingID, "user_id", userID)
		return nil, err
	}
	s.metrics.BookingCancellations.Inc()
	s.invalidate(ctx, alloc.Booking.ListingID)
	s.logger.Info("booking cancelled",
		"booking_id", bookingID,
		"listing_id", alloc.Booking.ListingID,
		"user_id", userID,
		"spots_filled", alloc.Occupancy.SpotsFilled,
	)
	return alloc, nil
}

// ListMine returns the caller's bookings with a summary of each listing.
func (s *BookingService) ListMine(ctx context.Context, userID string) ([]model.BookingWithListing, error) {
	out, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return out, nil
}

// ListForListing returns the booking ledger of a listing. Only the owner
// and admins may read it.
func (s *BookingService) ListForListing(ctx context.Context, listingID, viewerID string, admin bool) ([]model.Booking, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, passThrough("get listing", err)
	}
	if !admin && l.OwnerID != viewerID {
		return nil, repository.ErrForbidden
	}
	out, err := s.bookings.ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list listing bookings: %w", err)
	}
	return out, nil
}

func (s *BookingService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("listing cache invalidation failed", "listing_id", id, "error", err)
	}
}

// Outcome renders a booking result as the response envelope.
func Outcome(alloc *allocation.Allocation, err error) model.BookingOutcome {
	if err != nil {
		out := model.BookingOutcome{ErrorKind: string(allocation.KindOf(err)), Message: err.Error()}
		var e *allocation.Error
		if errors.As(err, &e) {
			out.Message = e.Message
		}
		return out
	}
	b := alloc.Booking
	occ := alloc.Occupancy
	return model.BookingOutcome{Success: true, Booking: &b, Listing: &occ}
}

func outcomeLabel(kind allocation.Kind) string {
	switch kind {
	case "":
		return "success"
	case allocation.KindInvalidRequest:
		return "invalid_request"
	case allocation.KindNotFound:
		return "not_found"
	case allocation.KindAlreadyBooked:
		return "already_booked"
	case allocation.KindFull:
		return "full"
	case allocation.KindGenderMismatch:
		return "gender_mismatch"
	default:
		return "persistence_failure"
	}
}
