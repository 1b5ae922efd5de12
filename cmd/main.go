// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/student-housing/internal/cache"
	"github.com/Shivanand-hulikatti/student-housing/internal/config"
	"github.com/Shivanand-hulikatti/student-housing/internal/database"
	"github.com/Shivanand-hulikatti/student-housing/internal/handler"
	"github.com/Shivanand-hulikatti/student-housing/internal/obs"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository/memory"
	"github.com/Shivanand-hulikatti/student-housing/internal/service"
	"github.com/Shivanand-hulikatti/student-housing/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type stores struct {
	listings service.ListingStore
	bookings service.BookingStore
	profiles service.ProfileStore
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ────────────────────────────────────────────────────────
	var st stores
	switch cfg.Storage {
	case config.StorageMemory:
		mem := memory.NewStore()
		st = stores{listings: mem, bookings: mem, profiles: mem}
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		pool, err := database.NewPool(ctx, cfg.DB, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("connected to PostgreSQL")
		st = stores{
			listings: repository.NewListingRepository(pool),
			bookings: repository.NewBookingRepository(pool),
			profiles: repository.NewProfileRepository(pool),
		}
	}

	var listingCache service.ListingCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		if err := cache.Ping(ctx, rdb); err != nil {
			logger.Warn("listing cache disabled", "error", err)
		} else {
			listingCache = cache.NewListingCache(rdb, cfg.Redis.TTL)
			logger.Info("connected to Redis", "addr", cfg.Redis.Addr)
		}
	}

	var docs service.DocumentStore
	s3, err := storage.NewClient(cfg.S3, logger)
	switch {
	case err == nil:
		docs = s3
		logger.Info("document storage ready", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	case errors.Is(err, storage.ErrDisabled) && cfg.Storage == config.StorageMemory:
		docs = storage.NewMemory()
	case errors.Is(err, storage.ErrDisabled):
		docs = storage.Disabled{}
		logger.Warn("S3_ENDPOINT not set; identity document uploads are disabled")
	default:
		return fmt.Errorf("document storage: %w", err)
	}

	// ── 2. Metrics ────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(reg)

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	router := handler.NewRouter(handler.Deps{
		Listings:       service.NewListingService(st.listings, listingCache, logger),
		Bookings:       service.NewBookingService(st.listings, st.bookings, listingCache, metrics, logger),
		Profiles:       service.NewProfileService(st.profiles, docs, metrics, logger, cfg.S3.URLTTL, cfg.MaxUploadBytes),
		Auth:           handler.NewAuthenticator(cfg.JWTSecret, cfg.IsAdminEmail),
		Metrics:        metrics,
		Gatherer:       reg,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
