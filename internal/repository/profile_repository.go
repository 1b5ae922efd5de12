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

// ProfileRepository handles persistence for identity verification profiles.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns a profile or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT id, full_name, verification_status, id_document_key, updated_at
		 FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SubmitDocument stores the object key of a freshly uploaded identity
// document and moves the profile to pending review. It returns the key of the
// document it replaced, if any.
//
// The row is created first and then locked, so concurrent first uploads of
// one user serialize on it and the later one sees the earlier key.
func (r *ProfileRepository) SubmitDocument(ctx context.Context, id, fullName, key string, now time.Time) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO profiles (id, full_name, verification_status, updated_at)
		 VALUES ($1, '', 'unverified', $2)
		 ON CONFLICT (id) DO NOTHING`,
		id, now,
	); err != nil {
		return "", fmt.Errorf("ensure profile: %w", err)
	}

	var previous *string
	if err := tx.QueryRow(ctx,
		`SELECT id_document_key FROM profiles WHERE id = $1 FOR UPDATE`, id,
	).Scan(&previous); err != nil {
		return "", fmt.Errorf("lock profile: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE profiles
		 SET verification_status = 'pending',
		     id_document_key     = $3,
		     full_name           = CASE WHEN $2 = '' THEN full_name ELSE $2 END,
		     updated_at          = $4
		 WHERE id = $1`,
		id, fullName, key, now,
	); err != nil {
		return "", fmt.Errorf("submit document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}

	if previous == nil || *previous == key {
		return "", nil
	}
	return *previous, nil
}

// SetVerification records a moderation decision. When clearDocument is set
// the stored document key is dropped and returned so the caller can delete
// the object.
func (r *ProfileRepository) SetVerification(ctx context.Context, id string, status model.VerificationStatus, clearDocument bool, now time.Time) (string, error) {
	var removed *string
	err := r.db.QueryRow(ctx,
		`UPDATE profiles p
		 SET verification_status = $2,
		     id_document_key     = CASE WHEN $3 THEN NULL ELSE p.id_document_key END,
		     updated_at          = $4
		 FROM (SELECT id, id_document_key FROM profiles WHERE id = $1 FOR UPDATE) old
		 WHERE p.id = old.id
		 RETURNING CASE WHEN $3 THEN old.id_document_key END`,
		id, string(status), clearDocument, now,
	).Scan(&removed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("set verification: %w", err)
	}
	if removed == nil {
		return "", nil
	}
	return *removed, nil
}

// ListForReview returns every profile, pending verifications first.
func (r *ProfileRepository) ListForReview(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, full_name, verification_status, id_document_key, updated_at
		 FROM profiles
		 ORDER BY CASE verification_status
		            WHEN 'pending' THEN 0 WHEN 'rejected' THEN 1 WHEN 'unverified' THEN 2 ELSE 3
		          END, updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		p      model.Profile
		status string
		key    *string
	)
	if err := row.Scan(&p.ID, &p.FullName, &status, &key, &p.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.VerificationStatus, err = model.ParseVerificationStatus(status); err != nil {
		return nil, err
	}
	if key != nil {
		p.IDDocumentKey = *key
	}
	return &p, nil
}
