package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
)

// BookingRepository handles persistence for the booking ledger.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindActive returns the confirmed booking of userID for listingID, or ErrNotFound.
func (r *BookingRepository) FindActive(ctx context.Context, listingID, userID string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT id, listing_id, user_id, gender, status, created_at
		 FROM bookings
		 WHERE listing_id = $1 AND user_id = $2 AND status = 'confirmed'`,
		listingID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

// Reserve claims one spot of b.ListingID for b.UserID and records the booking,
// both inside one transaction.
//
// ─────────────────────────────────────────────────────────────────────────────
// WHY A CONDITIONAL UPDATE
// ─────────────────────────────────────────────────────────────────────────────
//
// Checking the listing in Go and then writing spots_filled + 1 back is a
// check-then-act race:
//
//	request A: reads spots_filled=1, capacity=2  → room for one more
//	request B: reads spots_filled=1, capacity=2  → room for one more
//	request A: inserts booking, writes spots_filled=2
//	request B: inserts booking, writes spots_filled=2
//	Result: three bookings for a two-bed room, and a counter that hides it.
//
// The same window lets two first bookers on an empty listing both "set" the
// house gender, one Male and one Female.
//
// The UPDATE below re-states every precondition in its WHERE clause. Postgres
// takes the row lock before evaluating it and re-checks the predicate against
// the latest committed version, so exactly one of two racing writers matches
// the row; the loser sees zero rows and gets ErrLostRace. The row lock is held
// until COMMIT, which also serialises the ledger insert behind it.
//
// The partial unique index on bookings (listing_id, user_id) WHERE status =
// 'confirmed' closes the duplicate-booking race the pre-check cannot.
// ─────────────────────────────────────────────────────────────────────────────
func (r *BookingRepository) Reserve(ctx context.Context, b *model.Booking) (*model.Occupancy, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	occ := model.Occupancy{ListingID: b.ListingID}
	var gender *string
	err = tx.QueryRow(ctx,
		`UPDATE listings
		 SET spots_filled     = spots_filled + 1,
		     occupants_gender = CASE WHEN spots_filled = 0 THEN $2 ELSE occupants_gender END,
		     updated_at       = $3
		 WHERE id = $1
		   AND status = 'approved'
		   AND spots_filled < capacity
		   AND (spots_filled = 0 OR occupants_gender = $2)
		 RETURNING spots_filled, capacity, occupants_gender`,
		b.ListingID, string(b.Gender), b.CreatedAt,
	).Scan(&occ.SpotsFilled, &occ.Capacity, &gender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLostRace
		}
		return nil, fmt.Errorf("claim spot: %w", err)
	}
	if occ.OccupantsGender, err = parseGender(gender); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO bookings (id, listing_id, user_id, gender, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.ListingID, b.UserID, string(b.Gender), string(b.Status), b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &occ, nil
}

// Release cancels a confirmed booking owned by userID and frees its spot. When
// the listing empties, its occupant gender is cleared.
//
// Locks are taken listing first, booking second, the same order Reserve uses,
// so a cancel racing a re-book by the same user cannot deadlock.
func (r *BookingRepository) Release(ctx context.Context, bookingID, userID string, now time.Time) (*model.Booking, *model.Occupancy, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var listingID string
	err = tx.QueryRow(ctx,
		`SELECT listing_id FROM bookings WHERE id = $1 AND user_id = $2 AND status = 'confirmed'`,
		bookingID, userID,
	).Scan(&listingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("find booking: %w", err)
	}

	if _, err = tx.Exec(ctx, `SELECT 1 FROM listings WHERE id = $1 FOR UPDATE`, listingID); err != nil {
		return nil, nil, fmt.Errorf("lock listing row: %w", err)
	}

	b, err := scanBooking(tx.QueryRow(ctx,
		`UPDATE bookings SET status = 'cancelled'
		 WHERE id = $1 AND status = 'confirmed'
		 RETURNING id, listing_id, user_id, gender, status, created_at`,
		bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("cancel booking: %w", err)
	}

	occ := model.Occupancy{ListingID: listingID}
	var gender *string
	err = tx.QueryRow(ctx,
		`UPDATE listings
		 SET spots_filled     = spots_filled - 1,
		     occupants_gender = CASE WHEN spots_filled = 1 THEN NULL ELSE occupants_gender END,
		     updated_at       = $2
		 WHERE id = $1 AND spots_filled > 0
		 RETURNING spots_filled, capacity, occupants_gender`,
		listingID, now,
	).Scan(&occ.SpotsFilled, &occ.Capacity, &gender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("release spot: listing %s has no filled spots", listingID)
		}
		return nil, nil, fmt.Errorf("release spot: %w", err)
	}
	if occ.OccupantsGender, err = parseGender(gender); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return b, &occ, nil
}

// ListByListing returns the full ledger of a listing, oldest first.
func (r *BookingRepository) ListByListing(ctx context.Context, listingID string) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, listing_id, user_id, gender, status, created_at
		 FROM bookings
		 WHERE listing_id = $1
		 ORDER BY created_at ASC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ListByUser returns a user's bookings joined with their listing summary, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]model.BookingWithListing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.listing_id, b.user_id, b.gender, b.status, b.created_at,
		        l.title, l.price, l.location, l.image_urls, l.contact_phone
		 FROM bookings b
		 JOIN listings l ON l.id = b.listing_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	defer rows.Close()

	var out []model.BookingWithListing
	for rows.Next() {
		var (
			item           model.BookingWithListing
			gender, status string
			images         []string
		)
		err := rows.Scan(&item.ID, &item.ListingID, &item.UserID, &gender, &status, &item.CreatedAt,
			&item.Listing.Title, &item.Listing.Price, &item.Listing.Location, &images, &item.Listing.ContactPhone)
		if err != nil {
			return nil, fmt.Errorf("scan user booking: %w", err)
		}
		if item.Gender, err = model.ParseGender(gender); err != nil {
			return nil, err
		}
		if item.Status, err = model.ParseBookingStatus(status); err != nil {
			return nil, err
		}
		item.Listing.ID = item.ListingID
		if len(images) > 0 {
			item.Listing.ImageURL = images[0]
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b              model.Booking
		gender, status string
	)
	if err := row.Scan(&b.ID, &b.ListingID, &b.UserID, &gender, &status, &b.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.Gender, err = model.ParseGender(gender); err != nil {
		return nil, err
	}
	if b.Status, err = model.ParseBookingStatus(status); err != nil {
		return nil, err
	}
	return &b, nil
}
