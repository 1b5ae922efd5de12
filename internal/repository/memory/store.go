// Package memory is an in-process implementation of the listing, booking and
// profile stores. It backs STORAGE=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
)

// listingRow guards one listing. Reservations on different listings lock
// different rows and never wait on each other.
type listingRow struct {
	mu sync.Mutex
	l  model.Listing
}

type activeKey struct {
	listingID string
	userID    string
}

// Store keeps everything in maps. Lock order is row.mu before Store.mu; the
// store mutex is never held while waiting for a row.
type Store struct {
	mu       sync.RWMutex
	listings map[string]*listingRow
	bookings map[string]*model.Booking
	active   map[activeKey]string
	profiles map[string]*model.Profile
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		listings: make(map[string]*listingRow),
		bookings: make(map[string]*model.Booking),
		active:   make(map[activeKey]string),
		profiles: make(map[string]*model.Profile),
	}
}

func (s *Store) row(id string) *listingRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listings[id]
}

// ─── Listings ────────────────────────────────────────────────────────────────

// Create inserts a listing.
func (s *Store) Create(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = &listingRow{l: copyListing(*l)}
	return nil
}

// GetByID returns a copy of the listing or repository.ErrNotFound.
func (s *Store) GetByID(_ context.Context, id string) (*model.Listing, error) {
	r := s.row(id)
	if r == nil {
		return nil, repository.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l := copyListing(r.l)
	return &l, nil
}

// Update overwrites the owner-editable fields with the same guards as the SQL store.
func (s *Store) Update(_ context.Context, l *model.Listing) error {
	r := s.row(l.ID)
	if r == nil {
		return repository.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.l.OwnerID != l.OwnerID:
		return repository.ErrForbidden
	case l.Capacity < r.l.SpotsFilled:
		return repository.ErrCapacityBelowFilled
	}
	cur := &r.l
	cur.Title = l.Title
	cur.Description = l.Description
	cur.Price = l.Price
	cur.Location = l.Location
	cur.Rooms = l.Rooms
	cur.ContactPhone = l.ContactPhone
	cur.ImageURLs = append([]string(nil), l.ImageURLs...)
	cur.VideoURL = l.VideoURL
	cur.Capacity = l.Capacity
	cur.UpdatedAt = l.UpdatedAt
	return nil
}

// Delete removes a listing and its bookings. An empty ownerID skips the ownership guard.
func (s *Store) Delete(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if ownerID != "" && r.l.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	delete(s.listings, id)
	for bid, b := range s.bookings {
		if b.ListingID == id {
			delete(s.bookings, bid)
			delete(s.active, activeKey{b.ListingID, b.UserID})
		}
	}
	return nil
}

// SetStatus records a moderation decision.
func (s *Store) SetStatus(_ context.Context, id string, status model.ListingStatus) (*model.Listing, error) {
	r := s.row(id)
	if r == nil {
		return nil, repository.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.l.Status = status
	r.l.UpdatedAt = time.Now().UTC()
	l := copyListing(r.l)
	return &l, nil
}

// Search mirrors the SQL browse query.
func (s *Store) Search(_ context.Context, f model.ListingFilter) ([]model.Listing, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	loc := strings.ToLower(strings.TrimSpace(f.Location))
	return s.collect(func(l *model.Listing) bool {
		if l.Status != model.ListingApproved {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			return false
		}
		if loc != "" && !strings.Contains(strings.ToLower(l.Location), loc) {
			return false
		}
		if f.MaxPrice > 0 && l.Price > f.MaxPrice {
			return false
		}
		if f.Gender != nil && l.OccupantsGender != nil && *l.OccupantsGender != *f.Gender {
			return false
		}
		if f.AvailableOnly && l.IsFull() {
			return false
		}
		return true
	}, f.Limit, f.Offset), nil
}

// ListByOwner returns every listing of ownerID.
func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]model.Listing, error) {
	return s.collect(func(l *model.Listing) bool { return l.OwnerID == ownerID }, 0, 0), nil
}

// ListByStatus returns listings in a moderation state.
func (s *Store) ListByStatus(_ context.Context, status model.ListingStatus, limit, offset int) ([]model.Listing, error) {
	return s.collect(func(l *model.Listing) bool { return l.Status == status }, limit, offset), nil
}

func (s *Store) collect(keep func(*model.Listing) bool, limit, offset int) []model.Listing {
	s.mu.RLock()
	rows := make([]*listingRow, 0, len(s.listings))
	for _, r := range s.listings {
		rows = append(rows, r)
	}
	s.mu.RUnlock()

	var out []model.Listing
	for _, r := range rows {
		r.mu.Lock()
		l := copyListing(r.l)
		r.mu.Unlock()
		if keep(&l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset > 0 {
		if offset >= len(out) {
			return nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// ─── Bookings ────────────────────────────────────────────────────────────────

// FindActive returns the confirmed booking of userID for listingID.
func (s *Store) FindActive(_ context.Context, listingID, userID string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[activeKey{listingID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b := *s.bookings[id]
	return &b, nil
}

// Reserve claims a spot and records the booking under the listing's lock.
func (s *Store) Reserve(_ context.Context, b *model.Booking) (*model.Occupancy, error) {
	r := s.row(b.ListingID)
	if r == nil {
		return nil, repository.ErrLostRace
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	l := &r.l
	if l.Status != model.ListingApproved || l.SpotsFilled >= l.Capacity {
		return nil, repository.ErrLostRace
	}
	if l.SpotsFilled > 0 && (l.OccupantsGender == nil || *l.OccupantsGender != b.Gender) {
		return nil, repository.ErrLostRace
	}

	s.mu.Lock()
	if s.listings[b.ListingID] != r {
		s.mu.Unlock()
		return nil, repository.ErrLostRace
	}
	key := activeKey{b.ListingID, b.UserID}
	if _, dup := s.active[key]; dup {
		s.mu.Unlock()
		return nil, repository.ErrAlreadyBooked
	}
	stored := *b
	s.bookings[b.ID] = &stored
	s.active[key] = b.ID
	s.mu.Unlock()

	if l.SpotsFilled == 0 {
		g := b.Gender
		l.OccupantsGender = &g
	}
	l.SpotsFilled++
	l.UpdatedAt = b.CreatedAt
	snap := copyListing(*l)
	occ := snap.Occupancy()
	return &occ, nil
}

// Release cancels a confirmed booking of userID and frees its spot.
func (s *Store) Release(_ context.Context, bookingID, userID string, now time.Time) (*model.Booking, *model.Occupancy, error) {
	s.mu.RLock()
	b, ok := s.bookings[bookingID]
	var listingID string
	if ok {
		listingID = b.ListingID
	}
	s.mu.RUnlock()
	if !ok {
		return nil, nil, repository.ErrNotFound
	}

	r := s.row(listingID)
	if r == nil {
		return nil, nil, repository.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s.mu.Lock()
	b, ok = s.bookings[bookingID]
	if !ok || b.UserID != userID || b.Status != model.BookingConfirmed {
		s.mu.Unlock()
		return nil, nil, repository.ErrNotFound
	}
	b.Status = model.BookingCancelled
	delete(s.active, activeKey{b.ListingID, b.UserID})
	cancelled := *b
	s.mu.Unlock()

	l := &r.l
	l.SpotsFilled--
	if l.SpotsFilled == 0 {
		l.OccupantsGender = nil
	}
	l.UpdatedAt = now
	snap := copyListing(*l)
	occ := snap.Occupancy()
	return &cancelled, &occ, nil
}

// ListByListing returns the ledger of a listing, oldest first.
func (s *Store) ListByListing(_ context.Context, listingID string) ([]model.Booking, error) {
	s.mu.RLock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ListingID == listingID {
			out = append(out, *b)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByUser returns a user's bookings with listing summaries, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]model.BookingWithListing, error) {
	s.mu.RLock()
	var mine []model.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			mine = append(mine, *b)
		}
	}
	s.mu.RUnlock()

	out := make([]model.BookingWithListing, 0, len(mine))
	for _, b := range mine {
		l, err := s.GetByID(ctx, b.ListingID)
		if err != nil {
			continue
		}
		item := model.BookingWithListing{
			Booking: b,
			Listing: model.ListingSummary{
				ID:           l.ID,
				Title:        l.Title,
				Price:        l.Price,
				Location:     l.Location,
				ContactPhone: l.ContactPhone,
			},
		}
		if len(l.ImageURLs) > 0 {
			item.Listing.ImageURL = l.ImageURLs[0]
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ─── Profiles ────────────────────────────────────────────────────────────────

// Get returns a profile or repository.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// SubmitDocument stores a document key and marks the profile pending.
func (s *Store) SubmitDocument(_ context.Context, id, fullName, key string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		p = &model.Profile{ID: id}
		s.profiles[id] = p
	}
	previous := p.IDDocumentKey
	if fullName != "" {
		p.FullName = fullName
	}
	p.IDDocumentKey = key
	p.VerificationStatus = model.VerificationPending
	p.UpdatedAt = now
	if previous == key {
		return "", nil
	}
	return previous, nil
}

// SetVerification records a moderation decision.
func (s *Store) SetVerification(_ context.Context, id string, status model.VerificationStatus, clearDocument bool, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	var removed string
	if clearDocument {
		removed = p.IDDocumentKey
		p.IDDocumentKey = ""
	}
	p.VerificationStatus = status
	p.UpdatedAt = now
	return removed, nil
}

// ListForReview returns every profile, pending first.
func (s *Store) ListForReview(_ context.Context) ([]model.Profile, error) {
	s.mu.RLock()
	out := make([]model.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i].VerificationStatus.ReviewOrder(), out[j].VerificationStatus.ReviewOrder()
		if oi != oj {
			return oi < oj
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func copyListing(l model.Listing) model.Listing {
	l.ImageURLs = append([]string(nil), l.ImageURLs...)
	if l.OccupantsGender != nil {
		g := *l.OccupantsGender
		l.OccupantsGender = &g
	}
	return l
}
