// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layers.
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Shivanand-hulikatti/student-housing/internal/allocation"
	"github.com/Shivanand-hulikatti/student-housing/internal/model"
)

// ErrInvalid wraps every input validation failure. The wrapped message is
// safe to show to the caller.
var ErrInvalid = errors.New("invalid input")

// ErrUnavailable is returned when an optional backend (object storage) is
// not configured.
var ErrUnavailable = errors.New("feature unavailable")

// ListingStore is the listing persistence used by the services. Both the
// pgx repository and the in-memory store satisfy it.
type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, id, ownerID string) error
	SetStatus(ctx context.Context, id string, status model.ListingStatus) (*model.Listing, error)
	Search(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Listing, error)
	ListByStatus(ctx context.Context, status model.ListingStatus, limit, offset int) ([]model.Listing, error)
}

// BookingStore is the booking ledger plus its read models.
type BookingStore interface {
	allocation.Ledger
	ListByListing(ctx context.Context, listingID string) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.BookingWithListing, error)
}

// ProfileStore persists verification state.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	SubmitDocument(ctx context.Context, id, fullName, key string, now time.Time) (string, error)
	SetVerification(ctx context.Context, id string, status model.VerificationStatus, clearDocument bool, now time.Time) (string, error)
	ListForReview(ctx context.Context) ([]model.Profile, error)
}

// ListingCache caches public listing reads. Set only stores a snapshot when
// the listing's version has not moved since Version was read.
type ListingCache interface {
	Get(ctx context.Context, id string) (*model.Listing, bool, error)
	Version(ctx context.Context, id string) (int64, error)
	Set(ctx context.Context, l *model.Listing, version int64) error
	Invalidate(ctx context.Context, ids ...string) error
}

// DocumentStore keeps identity documents.
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}
