package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/student-housing/internal/config"
	"github.com/Shivanand-hulikatti/student-housing/internal/obs"
)

func TestNewClientDisabledWithoutEndpoint(t *testing.T) {
	if _, err := NewClient(config.S3Config{Bucket: "docs"}, obs.Discard()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("got %v", err)
	}
}

func TestNewClientStripsScheme(t *testing.T) {
	c, err := NewClient(config.S3Config{Endpoint: "http://localhost:9000", Bucket: "docs"}, obs.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if c.client.EndpointURL().Host != "localhost:9000" {
		t.Fatalf("endpoint = %s", c.client.EndpointURL())
	}
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Put(ctx, "/u1/doc.png/", strings.NewReader("img"), 3, "image/png"); err != nil {
		t.Fatal(err)
	}
	if !m.Has("u1/doc.png") {
		t.Fatal("object not stored under cleaned key")
	}
	u, err := m.PresignedURL(ctx, "u1/doc.png", time.Minute)
	if err != nil || !strings.Contains(u, "expires=60") {
		t.Fatalf("url %q err %v", u, err)
	}
	if err := m.Remove(ctx, "u1/doc.png"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.PresignedURL(ctx, "u1/doc.png", time.Minute); err == nil {
		t.Fatal("expected error for removed object")
	}
}

func TestDisabled(t *testing.T) {
	var d Disabled
	if err := d.Put(context.Background(), "k", strings.NewReader(""), 0, ""); !errors.Is(err, ErrDisabled) {
		t.Fatalf("got %v", err)
	}
}

func TestBucketCheckRetriesAfterFailure(t *testing.T) {
	c, err := NewClient(config.S3Config{Endpoint: "http://127.0.0.1:1", Bucket: "docs"}, obs.Discard())
	if err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Put(cancelled, "u1/a.png", strings.NewReader("img"), 3, "image/png"); err == nil || !strings.Contains(err.Error(), "context canceled") {
		t.Fatalf("first put: %v", err)
	}
	if c.bucketReady {
		t.Fatal("failed bucket check was remembered as ready")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = c.Put(ctx, "u1/a.png", strings.NewReader("img"), 3, "image/png")
	if err == nil || strings.Contains(err.Error(), "context canceled") {
		t.Fatalf("second put reused the earlier failure: %v", err)
	}
}
