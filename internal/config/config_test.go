package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_EMAILS", " Admin@Example.com , ops@example.com,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Storage != StoragePostgres {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("request timeout = %v", cfg.RequestTimeout)
	}
	if len(cfg.AdminEmails) != 2 {
		t.Fatalf("admin emails = %v", cfg.AdminEmails)
	}
	if !cfg.IsAdminEmail("admin@example.com") || !cfg.IsAdminEmail("OPS@example.com") {
		t.Fatal("expected configured admins to match case-insensitively")
	}
	if cfg.IsAdminEmail("someone@example.com") || cfg.IsAdminEmail("") {
		t.Fatal("unexpected admin match")
	}
	if got := cfg.DB.DSN(); got != "host=localhost port=5432 user=postgres password=postgres dbname=housing sslmode=disable" {
		t.Fatalf("dsn = %q", got)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	t.Setenv("STORAGE", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage")
	}
	t.Setenv("STORAGE", "memory")

	t.Setenv("LISTING_CACHE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad duration")
	}
	t.Setenv("LISTING_CACHE_TTL", "")

	t.Setenv("S3_USE_SSL", "maybe")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad boolean")
	}
	t.Setenv("S3_USE_SSL", "")

	for _, v := range []string{"0", "-5", "4294967296"} {
		t.Setenv("DB_MAX_CONNS", v)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for DB_MAX_CONNS=%s", v)
		}
	}
	t.Setenv("DB_MAX_CONNS", "")

	for _, v := range []string{"0", "-1"} {
		t.Setenv("MAX_UPLOAD_BYTES", v)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for MAX_UPLOAD_BYTES=%s", v)
		}
	}
	t.Setenv("MAX_UPLOAD_BYTES", "")

	if _, err := Load(); err != nil {
		t.Fatalf("defaults restored: %v", err)
	}
}

func TestDSNPrefersURL(t *testing.T) {
	c := DBConfig{URL: "postgres://u:p@db/housing", Host: "ignored"}
	if c.DSN() != "postgres://u:p@db/housing" {
		t.Fatalf("dsn = %q", c.DSN())
	}
}

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("Chdir back: %v", err)
		}
	})
}
