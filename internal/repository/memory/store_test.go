package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
)

func seed(t *testing.T, s *Store, id, owner string, capacity int, created time.Time) {
	t.Helper()
	err := s.Create(context.Background(), &model.Listing{
		ID: id, OwnerID: owner, Title: "Listing " + id, Location: "Yaba", Price: 150000,
		Capacity: capacity, Status: model.ListingApproved, CreatedAt: created, UpdatedAt: created,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func booking(id, listing, user string, g model.Gender) *model.Booking {
	return &model.Booking{ID: id, ListingID: listing, UserID: user, Gender: g,
		Status: model.BookingConfirmed, CreatedAt: time.Now().UTC()}
}

func TestReserveGuards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "l1", "owner", 2, time.Now())

	occ, err := s.Reserve(ctx, booking("b1", "l1", "u1", model.GenderMale))
	if err != nil {
		t.Fatal(err)
	}
	if occ.SpotsFilled != 1 || *occ.OccupantsGender != model.GenderMale {
		t.Fatalf("occupancy %+v", occ)
	}

	if _, err := s.Reserve(ctx, booking("b2", "l1", "u1", model.GenderMale)); !errors.Is(err, repository.ErrAlreadyBooked) {
		t.Fatalf("duplicate: got %v", err)
	}
	if _, err := s.Reserve(ctx, booking("b3", "l1", "u2", model.GenderFemale)); !errors.Is(err, repository.ErrLostRace) {
		t.Fatalf("gender: got %v", err)
	}
	if _, err := s.Reserve(ctx, booking("b4", "l1", "u3", model.GenderMale)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reserve(ctx, booking("b5", "l1", "u4", model.GenderMale)); !errors.Is(err, repository.ErrLostRace) {
		t.Fatalf("full: got %v", err)
	}
	if _, err := s.Reserve(ctx, booking("b6", "missing", "u4", model.GenderMale)); !errors.Is(err, repository.ErrLostRace) {
		t.Fatalf("missing listing: got %v", err)
	}
}

func TestUpdateGuards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "l1", "owner", 3, time.Now())
	for _, u := range []string{"a", "b"} {
		if _, err := s.Reserve(ctx, booking("b-"+u, "l1", u, model.GenderFemale)); err != nil {
			t.Fatal(err)
		}
	}

	l, _ := s.GetByID(ctx, "l1")
	l.Capacity = 1
	if err := s.Update(ctx, l); !errors.Is(err, repository.ErrCapacityBelowFilled) {
		t.Fatalf("shrink below filled: got %v", err)
	}
	l.Capacity = 2
	l.OwnerID = "intruder"
	if err := s.Update(ctx, l); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("foreign update: got %v", err)
	}
	l.OwnerID = "owner"
	if err := s.Update(ctx, l); err != nil {
		t.Fatalf("shrink to filled: %v", err)
	}
	got, _ := s.GetByID(ctx, "l1")
	if got.Capacity != 2 || !got.IsFull() {
		t.Fatalf("listing %+v", got)
	}
}

func TestDeleteCascadesBookings(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "l1", "owner", 3, time.Now())
	if _, err := s.Reserve(ctx, booking("b1", "l1", "u1", model.GenderMale)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "l1", "someone"); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("got %v", err)
	}
	if err := s.Delete(ctx, "l1", "owner"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.FindActive(ctx, "l1", "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("booking survived delete: %v", err)
	}
	if err := s.Delete(ctx, "l1", ""); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, "old", "o", 1, base)
	seed(t, s, "mid", "o", 2, base.Add(time.Hour))
	seed(t, s, "new", "o", 2, base.Add(2*time.Hour))
	if _, err := s.Reserve(ctx, booking("b1", "old", "u", model.GenderMale)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reserve(ctx, booking("b2", "mid", "u", model.GenderFemale)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetStatus(ctx, "new", model.ListingPending); err != nil {
		t.Fatal(err)
	}

	all, _ := s.Search(ctx, model.ListingFilter{})
	if len(all) != 2 || all[0].ID != "mid" {
		t.Fatalf("approved listings newest first: %+v", all)
	}
	male := model.GenderMale
	forMale, _ := s.Search(ctx, model.ListingFilter{Gender: &male})
	if len(forMale) != 1 || forMale[0].ID != "old" {
		t.Fatalf("male filter: %+v", forMale)
	}
	open, _ := s.Search(ctx, model.ListingFilter{AvailableOnly: true})
	if len(open) != 1 || open[0].ID != "mid" {
		t.Fatalf("available filter: %+v", open)
	}
	page, _ := s.Search(ctx, model.ListingFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != "old" {
		t.Fatalf("paging: %+v", page)
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now().UTC()

	prev, err := s.SubmitDocument(ctx, "u1", "Ada", "u1/a.png", now)
	if err != nil || prev != "" {
		t.Fatalf("first submit: %q %v", prev, err)
	}
	prev, _ = s.SubmitDocument(ctx, "u1", "", "u1/b.png", now)
	if prev != "u1/a.png" {
		t.Fatalf("replaced key = %q", prev)
	}
	p, _ := s.Get(ctx, "u1")
	if p.FullName != "Ada" || p.VerificationStatus != model.VerificationPending {
		t.Fatalf("profile %+v", p)
	}

	removed, err := s.SetVerification(ctx, "u1", model.VerificationRejected, true, now)
	if err != nil || removed != "u1/b.png" {
		t.Fatalf("reject: %q %v", removed, err)
	}
	if _, err := s.SetVerification(ctx, "ghost", model.VerificationVerified, false, now); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestReserveAndReleaseReturnSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "l1", "owner", 2, time.Now())

	occ, err := s.Reserve(ctx, booking("b1", "l1", "u1", model.GenderFemale))
	if err != nil {
		t.Fatal(err)
	}
	*occ.OccupantsGender = model.GenderMale
	occ.SpotsFilled = 9

	got, _ := s.GetByID(ctx, "l1")
	if got.SpotsFilled != 1 || *got.OccupantsGender != model.GenderFemale {
		t.Fatalf("caller mutation leaked into store: %+v", got)
	}

	cancelled, occ, err := s.Release(ctx, "b1", "u1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != model.BookingCancelled || occ.SpotsFilled != 0 || occ.OccupantsGender != nil {
		t.Fatalf("release: %+v %+v", cancelled, occ)
	}
}

func TestConcurrentFirstSubmissionsReportReplacedKey(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	prevs := make(chan string, 2)
	done := make(chan struct{})
	for _, k := range []string{"u1/a.png", "u1/b.png"} {
		go func(k string) {
			prev, err := s.SubmitDocument(ctx, "u1", "", k, time.Now())
			if err != nil {
				t.Error(err)
			}
			prevs <- prev
			done <- struct{}{}
		}(k)
	}
	<-done
	<-done
	close(prevs)

	var replaced []string
	for p := range prevs {
		if p != "" {
			replaced = append(replaced, p)
		}
	}
	p, _ := s.Get(ctx, "u1")
	if len(replaced) != 1 || replaced[0] == p.IDDocumentKey {
		t.Fatalf("replaced=%v stored=%q", replaced, p.IDDocumentKey)
	}
}
