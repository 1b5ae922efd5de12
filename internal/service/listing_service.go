package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListingService orchestrates listing CRUD, browsing and moderation.
type ListingService struct {
	listings ListingStore
	cache    ListingCache
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewListingService constructs a ListingService with its dependencies.
func NewListingService(listings ListingStore, cache ListingCache, logger *slog.Logger) *ListingService {
	return &ListingService{
		listings: listings,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Create validates the request and stores a new listing awaiting moderation.
func (s *ListingService) Create(ctx context.Context, ownerID string, req model.ListingRequest) (*model.Listing, error) {
	if ownerID == "" {
		return nil, repository.ErrForbidden
	}
	req = normalizeListing(req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	now := s.now()
	l := &model.Listing{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Status:    model.ListingPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyListing(l, req)
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	s.logger.Info("listing created", "listing_id", l.ID, "owner_id", ownerID)
	return l, nil
}

// Update overwrites the owner-editable fields. Moderation status and
// occupancy are left untouched; capacity may not drop below spots filled.
func (s *ListingService) Update(ctx context.Context, ownerID, id string, req model.ListingRequest) (*model.Listing, error) {
	req = normalizeListing(req)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	l := &model.Listing{ID: id, OwnerID: ownerID, UpdatedAt: s.now()}
	applyListing(l, req)
	if err := s.listings.Update(ctx, l); err != nil {
		return nil, passThrough("update listing", err)
	}
	s.invalidate(ctx, id)

	updated, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, passThrough("get listing", err)
	}
	return updated, nil
}

// Delete removes the caller's listing together with its bookings.
func (s *ListingService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return repository.ErrForbidden
	}
	if err := s.listings.Delete(ctx, id, ownerID); err != nil {
		return passThrough("delete listing", err)
	}
	s.invalidate(ctx, id)
	s.logger.Info("listing deleted", "listing_id", id, "owner_id", ownerID)
	return nil
}

// Get returns an approved listing. Pending and rejected listings are
// reported as not found.
func (s *ListingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	if l, ok, err := s.cache.Get(ctx, id); err != nil {
		s.logger.Warn("listing cache read failed", "listing_id", id, "error", err)
	} else if ok {
		return l, nil
	}

	// version before the store read, so an invalidation in between drops the fill
	version, verr := s.cache.Version(ctx, id)
	if verr != nil {
		s.logger.Warn("listing cache version read failed", "listing_id", id, "error", verr)
	}

	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, passThrough("get listing", err)
	}
	if !l.Bookable() {
		return nil, repository.ErrNotFound
	}
	if verr == nil {
		if err := s.cache.Set(ctx, l, version); err != nil {
			s.logger.Warn("listing cache write failed", "listing_id", id, "error", err)
		}
	}
	return l, nil
}

// Search browses approved listings.
func (s *ListingService) Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Location = strings.TrimSpace(f.Location)
	if f.MaxPrice < 0 {
		return nil, invalid("max_price must not be negative")
	}
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	out, err := s.listings.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	return out, nil
}

// ListMine returns every listing of the owner regardless of status.
func (s *ListingService) ListMine(ctx context.Context, ownerID string) ([]model.Listing, error) {
	out, err := s.listings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner listings: %w", err)
	}
	return out, nil
}

// ListByStatus is the moderation queue.
func (s *ListingService) ListByStatus(ctx context.Context, status model.ListingStatus, limit, offset int) ([]model.Listing, error) {
	limit, offset = page(limit, offset)
	out, err := s.listings.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list listings by status: %w", err)
	}
	return out, nil
}

// Moderate approves or rejects a listing. Existing bookings stay as they are.
func (s *ListingService) Moderate(ctx context.Context, id string, status model.ListingStatus) (*model.Listing, error) {
	if status == model.ListingPending {
		return nil, invalid("a listing can only be approved or rejected")
	}
	l, err := s.listings.SetStatus(ctx, id, status)
	if err != nil {
		return nil, passThrough("moderate listing", err)
	}
	s.invalidate(ctx, id)
	s.logger.Info("listing moderated", "listing_id", id, "status", status)
	return l, nil
}

// AdminDelete removes any listing.
func (s *ListingService) AdminDelete(ctx context.Context, id string) error {
	if err := s.listings.Delete(ctx, id, ""); err != nil {
		return passThrough("delete listing", err)
	}
	s.invalidate(ctx, id)
	s.logger.Info("listing deleted by admin", "listing_id", id)
	return nil
}

func (s *ListingService) invalidate(ctx context.Context, ids ...string) {
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.logger.Warn("listing cache invalidation failed", "listing_ids", ids, "error", err)
	}
}

func normalizeListing(req model.ListingRequest) model.ListingRequest {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)
	req.Rooms = strings.TrimSpace(req.Rooms)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	urls := make([]string, 0, len(req.ImageURLs))
	for _, u := range req.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	req.ImageURLs = urls
	return req
}

func applyListing(l *model.Listing, req model.ListingRequest) {
	l.Title = req.Title
	l.Description = req.Description
	l.Price = req.Price
	l.Location = req.Location
	l.Rooms = req.Rooms
	l.ContactPhone = req.ContactPhone
	l.ImageURLs = req.ImageURLs
	l.VideoURL = req.VideoURL
	l.Capacity = req.Capacity
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// passThrough keeps repository sentinels intact so handlers can map them,
// and wraps everything else.
func passThrough(op string, err error) error {
	for _, sentinel := range []error{
		repository.ErrNotFound,
		repository.ErrForbidden,
		repository.ErrCapacityBelowFilled,
		repository.ErrLostRace,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
