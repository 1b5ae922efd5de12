package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
)

const listingColumns = `id, user_id, title, description, price, location, rooms, contact_phone,
	image_urls, video_url, capacity, spots_filled, occupants_gender, status, created_at, updated_at`

// ListingRepository handles persistence for listings.
type ListingRepository struct {
	db *pgxpool.Pool
}

// NewListingRepository constructs a ListingRepository.
func NewListingRepository(db *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create inserts a new listing. The caller fills in ID, timestamps and status.
func (r *ListingRepository) Create(ctx context.Context, l *model.Listing) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Price, l.Location, l.Rooms, l.ContactPhone,
		imageURLs(l.ImageURLs), l.VideoURL, l.Capacity, l.SpotsFilled, genderParam(l.OccupantsGender),
		string(l.Status), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// GetByID returns a single listing or ErrNotFound.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// Update overwrites the owner-editable fields of a listing. The write only
// lands when ownerID owns the row and the new capacity still fits the spots
// already filled; otherwise ErrNotFound, ErrForbidden or ErrCapacityBelowFilled
// tells the caller which guard failed.
func (r *ListingRepository) Update(ctx context.Context, l *model.Listing) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE listings
		 SET title = $3, description = $4, price = $5, location = $6, rooms = $7,
		     contact_phone = $8, image_urls = $9, video_url = $10, capacity = $11, updated_at = $12
		 WHERE id = $1 AND user_id = $2 AND spots_filled <= $11`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Price, l.Location, l.Rooms,
		l.ContactPhone, imageURLs(l.ImageURLs), l.VideoURL, l.Capacity, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var owner string
	var filled int
	err = r.db.QueryRow(ctx,
		`SELECT user_id, spots_filled FROM listings WHERE id = $1`, l.ID,
	).Scan(&owner, &filled)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("inspect listing: %w", err)
	case owner != l.OwnerID:
		return ErrForbidden
	case l.Capacity < filled:
		return ErrCapacityBelowFilled
	default:
		return ErrLostRace
	}
}

// Delete removes a listing and, through the foreign key, its bookings.
// An empty ownerID skips the ownership guard (admin delete).
func (r *ListingRepository) Delete(ctx context.Context, id, ownerID string) error {
	var (
		query = `DELETE FROM listings WHERE id = $1`
		args  = []any{id}
	)
	if ownerID != "" {
		query += ` AND user_id = $2`
		args = append(args, ownerID)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if ownerID != "" {
			if _, getErr := r.GetByID(ctx, id); getErr == nil {
				return ErrForbidden
			}
		}
		return ErrNotFound
	}
	return nil
}

// SetStatus records a moderation decision.
func (r *ListingRepository) SetStatus(ctx context.Context, id string, status model.ListingStatus) (*model.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx,
		`UPDATE listings SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+listingColumns,
		id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set listing status: %w", err)
	}
	return l, nil
}

// Search returns approved listings matching the filter, newest first.
func (r *ListingRepository) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	where := []string{"status = 'approved'"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		where = append(where, "location ILIKE "+arg("%"+loc+"%"))
	}
	if f.MaxPrice > 0 {
		where = append(where, "price <= "+arg(f.MaxPrice))
	}
	if f.Gender != nil {
		where = append(where, "(occupants_gender IS NULL OR occupants_gender = "+arg(string(*f.Gender))+")")
	}
	if f.AvailableOnly {
		where = append(where, "spots_filled < capacity")
	}

	query := `SELECT ` + listingColumns + ` FROM listings WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	return r.query(ctx, query, args...)
}

// ListByOwner returns every listing created by ownerID regardless of status.
func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Listing, error) {
	return r.query(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE user_id = $1 ORDER BY created_at DESC`,
		ownerID)
}

// ListByStatus returns listings in a moderation state, newest first.
func (r *ListingRepository) ListByStatus(ctx context.Context, status model.ListingStatus, limit, offset int) ([]model.Listing, error) {
	return r.query(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE status = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
}

func (r *ListingRepository) query(ctx context.Context, sql string, args ...any) ([]model.Listing, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var (
		l      model.Listing
		gender *string
		status string
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Price, &l.Location, &l.Rooms,
		&l.ContactPhone, &l.ImageURLs, &l.VideoURL, &l.Capacity, &l.SpotsFilled, &gender, &status,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if l.OccupantsGender, err = parseGender(gender); err != nil {
		return nil, err
	}
	if l.Status, err = model.ParseListingStatus(status); err != nil {
		return nil, err
	}
	return &l, nil
}

func parseGender(raw *string) (*model.Gender, error) {
	if raw == nil {
		return nil, nil
	}
	g, err := model.ParseGender(*raw)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func genderParam(g *model.Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}

func imageURLs(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
