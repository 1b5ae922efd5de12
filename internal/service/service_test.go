package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Shivanand-hulikatti/student-housing/internal/allocation"
	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/obs"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository/memory"
	"github.com/Shivanand-hulikatti/student-housing/internal/storage"
)

// fakeCache is a map-backed ListingCache with per-listing versions that
// records invalidations.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]model.Listing
	versions    map[string]int64
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]model.Listing{}, versions: map[string]int64{}}
}

func (c *fakeCache) Get(_ context.Context, id string) (*model.Listing, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	return &l, true, nil
}

func (c *fakeCache) Version(_ context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[id], nil
}

func (c *fakeCache) Set(_ context.Context, l *model.Listing, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[l.ID] != version {
		return nil
	}
	c.entries[l.ID] = *l
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.versions[id]++
		delete(c.entries, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

// interleavedStore runs onRead right after each GetByID, standing in for a
// write that commits while a reader holds its snapshot.
type interleavedStore struct {
	ListingStore
	onRead func()
}

func (s interleavedStore) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	l, err := s.ListingStore.GetByID(ctx, id)
	s.onRead()
	return l, err
}

func validRequest() model.ListingRequest {
	return model.ListingRequest{
		Title:        "Self contain, Akoka",
		Price:        250000,
		Location:     "Akoka",
		ContactPhone: "08031234567",
		ImageURLs:    []string{"https://img.example.com/1.jpg"},
		Capacity:     2,
	}
}

func newListingService(t *testing.T) (*ListingService, *memory.Store, *fakeCache) {
	t.Helper()
	store := memory.NewStore()
	cache := newFakeCache()
	return NewListingService(store, cache, obs.Discard()), store, cache
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newListingService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.ListingRequest)
		want   string
	}{
		{"short title", func(r *model.ListingRequest) { r.Title = "Room" }, "title must be at least 5 characters"},
		{"cheap", func(r *model.ListingRequest) { r.Price = 500 }, "price must be at least 10000"},
		{"short phone", func(r *model.ListingRequest) { r.ContactPhone = "0803" }, "contact_phone must be at least 10 characters"},
		{"zero capacity", func(r *model.ListingRequest) { r.Capacity = 0 }, "capacity must be at least 1"},
		{"bad image url", func(r *model.ListingRequest) { r.ImageURLs = []string{"not a url"} }, "image_urls[0] must be a valid URL"},
		{"too many images", func(r *model.ListingRequest) {
			r.ImageURLs = []string{"https://a.io/1", "https://a.io/2", "https://a.io/3", "https://a.io/4"}
		}, "image_urls accepts at most 3 items"},
		{"blank location", func(r *model.ListingRequest) { r.Location = "   " }, "location is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := svc.Create(ctx, "owner", req)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("message %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestCreateStartsPending(t *testing.T) {
	svc, _, _ := newListingService(t)
	ctx := context.Background()

	l, err := svc.Create(ctx, "owner", validRequest())
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != model.ListingPending || l.SpotsFilled != 0 || l.OccupantsGender != nil {
		t.Fatalf("new listing %+v", l)
	}
	if _, err := svc.Get(ctx, l.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("pending listing visible: %v", err)
	}
	mine, _ := svc.ListMine(ctx, "owner")
	if len(mine) != 1 {
		t.Fatalf("owner sees %d listings", len(mine))
	}
}

func TestGetUsesCacheAndModerationInvalidates(t *testing.T) {
	svc, _, cache := newListingService(t)
	ctx := context.Background()
	l, _ := svc.Create(ctx, "owner", validRequest())

	if _, err := svc.Moderate(ctx, l.ID, model.ListingApproved); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, l.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := cache.Get(ctx, l.ID); !ok {
		t.Fatal("approved listing was not cached")
	}
	if _, err := svc.Moderate(ctx, l.ID, model.ListingRejected); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, l.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("rejected listing served from cache: %v", err)
	}
	if _, err := svc.Moderate(ctx, l.ID, model.ListingPending); !errors.Is(err, ErrInvalid) {
		t.Fatalf("got %v", err)
	}
}

func TestGetDoesNotCacheSnapshotInvalidatedDuringRead(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := newFakeCache()
	admin := NewListingService(store, cache, obs.Discard())
	l, _ := admin.Create(ctx, "owner", validRequest())
	if _, err := admin.Moderate(ctx, l.ID, model.ListingApproved); err != nil {
		t.Fatal(err)
	}

	rejectOnce := sync.Once{}
	reader := NewListingService(interleavedStore{ListingStore: store, onRead: func() {
		rejectOnce.Do(func() {
			if _, err := admin.Moderate(ctx, l.ID, model.ListingRejected); err != nil {
				t.Error(err)
			}
		})
	}}, cache, obs.Discard())

	if _, err := reader.Get(ctx, l.ID); err != nil {
		t.Fatalf("read of the approved snapshot: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, l.ID); ok {
		t.Fatal("snapshot read before rejection was cached")
	}
	if _, err := reader.Get(ctx, l.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("rejected listing still public: %v", err)
	}
}

func TestUpdateKeepsStatusAndGuardsOwner(t *testing.T) {
	svc, _, _ := newListingService(t)
	ctx := context.Background()
	l, _ := svc.Create(ctx, "owner", validRequest())
	if _, err := svc.Moderate(ctx, l.ID, model.ListingApproved); err != nil {
		t.Fatal(err)
	}

	req := validRequest()
	req.Title = "Renovated self contain"
	req.Capacity = 4
	updated, err := svc.Update(ctx, "owner", l.ID, req)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != model.ListingApproved || updated.Capacity != 4 || updated.Title != req.Title {
		t.Fatalf("updated %+v", updated)
	}
	if _, err := svc.Update(ctx, "intruder", l.ID, req); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("got %v", err)
	}
	if _, err := svc.Update(ctx, "owner", "missing", req); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestSearchPaging(t *testing.T) {
	svc, store, _ := newListingService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		l, _ := svc.Create(ctx, "owner", validRequest())
		if _, err := store.SetStatus(ctx, l.ID, model.ListingApproved); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.Search(ctx, model.ListingFilter{Limit: 1000})
	if err != nil || len(got) != 3 {
		t.Fatalf("got %d listings, err %v", len(got), err)
	}
	if _, err := svc.Search(ctx, model.ListingFilter{MaxPrice: -1}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("got %v", err)
	}
	if l, o := page(0, -3); l != defaultPageSize || o != 0 {
		t.Fatalf("page(0,-3) = %d,%d", l, o)
	}
	if l, _ := page(500, 0); l != maxPageSize {
		t.Fatalf("limit not clamped: %d", l)
	}
}

func TestBookAndCancel(t *testing.T) {
	store := memory.NewStore()
	cache := newFakeCache()
	metrics := obs.NewMetrics(nil)
	listings := NewListingService(store, cache, obs.Discard())
	bookings := NewBookingService(store, store, cache, metrics, obs.Discard())
	ctx := context.Background()

	l, _ := listings.Create(ctx, "owner", validRequest())
	if _, err := listings.Moderate(ctx, l.ID, model.ListingApproved); err != nil {
		t.Fatal(err)
	}
	cache.invalidated = nil

	alloc, err := bookings.Book(ctx, "u1", l.ID, model.BookingRequest{Gender: "female"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != l.ID {
		t.Fatalf("invalidated %v", cache.invalidated)
	}
	out := Outcome(alloc, nil)
	if !out.Success || out.Listing.SpotsFilled != 1 || *out.Listing.OccupantsGender != model.GenderFemale {
		t.Fatalf("outcome %+v", out)
	}

	_, err = bookings.Book(ctx, "u2", l.ID, model.BookingRequest{Gender: "Male"})
	out = Outcome(nil, err)
	if out.Success || out.ErrorKind != string(allocation.KindGenderMismatch) || !strings.Contains(out.Message, "Females") {
		t.Fatalf("outcome %+v", out)
	}
	if got := testutil.ToFloat64(metrics.BookingAttempts.WithLabelValues("gender_mismatch")); got != 1 {
		t.Fatalf("gender_mismatch attempts = %v", got)
	}

	if _, err := bookings.ListForListing(ctx, l.ID, "u1", false); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("got %v", err)
	}
	ledger, err := bookings.ListForListing(ctx, l.ID, "owner", false)
	if err != nil || len(ledger) != 1 {
		t.Fatalf("ledger %v err %v", ledger, err)
	}
	mine, _ := bookings.ListMine(ctx, "u1")
	if len(mine) != 1 || mine[0].Listing.Title != l.Title {
		t.Fatalf("my bookings %+v", mine)
	}

	cancelled, err := bookings.Cancel(ctx, "u1", alloc.Booking.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Occupancy.SpotsFilled != 0 || cancelled.Occupancy.OccupantsGender != nil {
		t.Fatalf("occupancy after cancel %+v", cancelled.Occupancy)
	}
	if got := testutil.ToFloat64(metrics.BookingCancellations); got != 1 {
		t.Fatalf("cancellations = %v", got)
	}
	if _, err := bookings.Book(ctx, "u2", l.ID, model.BookingRequest{Gender: "Male"}); err != nil {
		t.Fatalf("male booking after listing emptied: %v", err)
	}
}

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

func newProfileService(t *testing.T) (*ProfileService, *storage.Memory, *obs.Metrics) {
	t.Helper()
	docs := storage.NewMemory()
	metrics := obs.NewMetrics(nil)
	return NewProfileService(memory.NewStore(), docs, metrics, obs.Discard(), 0, 1024), docs, metrics
}

func TestProfileDefaultsToUnverified(t *testing.T) {
	svc, _, _ := newProfileService(t)
	p, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "u1" || p.VerificationStatus != model.VerificationUnverified {
		t.Fatalf("profile %+v", p)
	}
}

func TestSubmitDocument(t *testing.T) {
	svc, docs, metrics := newProfileService(t)
	ctx := context.Background()

	for name, body := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("just some text"),
		"oversized": append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...),
	} {
		if _, err := svc.SubmitDocument(ctx, "u1", "Ada", bytes.NewReader(body)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: got %v", name, err)
		}
	}

	p, err := svc.SubmitDocument(ctx, "u1", "Ada", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatal(err)
	}
	if p.VerificationStatus != model.VerificationPending || !strings.HasSuffix(p.IDDocumentKey, ".png") {
		t.Fatalf("profile %+v", p)
	}
	first := p.IDDocumentKey

	p, err = svc.SubmitDocument(ctx, "u1", "", bytes.NewReader(pdfHeader))
	if err != nil {
		t.Fatal(err)
	}
	if docs.Has(first) || !docs.Has(p.IDDocumentKey) {
		t.Fatalf("replaced document not cleaned up: first=%v new=%v", docs.Has(first), docs.Has(p.IDDocumentKey))
	}
	if got := testutil.ToFloat64(metrics.VerificationUploads); got != 2 {
		t.Fatalf("uploads = %v", got)
	}
}

func TestSubmitDocumentWithoutStorage(t *testing.T) {
	svc := NewProfileService(memory.NewStore(), storage.Disabled{}, obs.NewMetrics(nil), obs.Discard(), 0, 1024)
	if _, err := svc.SubmitDocument(context.Background(), "u1", "", bytes.NewReader(pngHeader)); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v", err)
	}
}

func TestReviewDecisions(t *testing.T) {
	svc, docs, _ := newProfileService(t)
	ctx := context.Background()
	for _, u := range []string{"a", "b"} {
		if _, err := svc.SubmitDocument(ctx, u, "", bytes.NewReader(pngHeader)); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.Approve(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	queue, err := svc.Review(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 2 || queue[0].ID != "b" || queue[0].IDDocumentURL == "" {
		t.Fatalf("review queue %+v", queue)
	}

	b, _ := svc.Get(ctx, "b")
	if err := svc.Reject(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if docs.Has(b.IDDocumentKey) {
		t.Fatal("rejected document kept in storage")
	}
	if err := svc.Revoke(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	a, _ := svc.Get(ctx, "a")
	if a.VerificationStatus != model.VerificationUnverified {
		t.Fatalf("revoked profile %+v", a)
	}
	if err := svc.Approve(ctx, "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}
