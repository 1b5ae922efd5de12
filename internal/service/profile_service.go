package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/obs"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
	"github.com/Shivanand-hulikatti/student-housing/internal/storage"
)

var allowedDocumentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// ProfileService handles identity verification: document upload by users
// and review by admins.
type ProfileService struct {
	profiles ProfileStore
	docs     DocumentStore
	metrics  *obs.Metrics
	logger   *slog.Logger
	urlTTL   time.Duration
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

// NewProfileService constructs a ProfileService. Presigned document URLs
// live for urlTTL; uploads larger than maxBytes are refused.
func NewProfileService(profiles ProfileStore, docs DocumentStore, metrics *obs.Metrics, logger *slog.Logger, urlTTL time.Duration, maxBytes int64) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		docs:     docs,
		metrics:  metrics,
		logger:   logger,
		urlTTL:   urlTTL,
		maxBytes: maxBytes,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Get returns the caller's profile; users who never uploaded are unverified.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.Profile{ID: userID, VerificationStatus: model.VerificationUnverified}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SubmitDocument stores an identity document and moves the profile to
// pending. A previously uploaded document is removed.
func (s *ProfileService) SubmitDocument(ctx context.Context, userID, fullName string, r io.Reader) (*model.Profile, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return nil, invalid("document is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, invalid("document must be at most %d bytes", s.maxBytes)
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedDocumentTypes...) {
		return nil, invalid("document must be a JPEG, PNG or PDF file")
	}

	key := userID + "/" + s.newID() + mt.Extension()
	if err := s.docs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String()); err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("store document: %w", err)
	}

	previous, err := s.profiles.SubmitDocument(ctx, userID, strings.TrimSpace(fullName), key, s.now())
	if err != nil {
		s.removeDocument(ctx, key)
		return nil, fmt.Errorf("save profile: %w", err)
	}
	if previous != "" {
		s.removeDocument(ctx, previous)
	}
	s.metrics.VerificationUploads.Inc()
	s.logger.Info("verification document submitted", "user_id", userID, "content_type", mt.String())
	return s.Get(ctx, userID)
}

// Review lists profiles for moderation, pending first, each with a
// short-lived document URL.
func (s *ProfileService) Review(ctx context.Context) ([]model.Profile, error) {
	out, err := s.profiles.ListForReview(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	for i := range out {
		if out[i].IDDocumentKey == "" {
			continue
		}
		u, err := s.docs.PresignedURL(ctx, out[i].IDDocumentKey, s.urlTTL)
		if err != nil {
			s.logger.Warn("presign document failed", "user_id", out[i].ID, "error", err)
			continue
		}
		out[i].IDDocumentURL = u
	}
	return out, nil
}

// Approve marks the user verified.
func (s *ProfileService) Approve(ctx context.Context, userID string) error {
	return s.decide(ctx, userID, model.VerificationVerified, false)
}

// Reject marks the user rejected and discards the document.
func (s *ProfileService) Reject(ctx context.Context, userID string) error {
	return s.decide(ctx, userID, model.VerificationRejected, true)
}

// Revoke returns a verified user to unverified.
func (s *ProfileService) Revoke(ctx context.Context, userID string) error {
	return s.decide(ctx, userID, model.VerificationUnverified, false)
}

func (s *ProfileService) decide(ctx context.Context, userID string, status model.VerificationStatus, clearDocument bool) error {
	removed, err := s.profiles.SetVerification(ctx, userID, status, clearDocument, s.now())
	if err != nil {
		return passThrough("set verification", err)
	}
	if removed != "" {
		s.removeDocument(ctx, removed)
	}
	s.logger.Info("verification decided", "user_id", userID, "status", status)
	return nil
}

func (s *ProfileService) removeDocument(ctx context.Context, key string) {
	if err := s.docs.Remove(ctx, key); err != nil {
		s.logger.Warn("remove document failed", "key", key, "error", err)
	}
}
