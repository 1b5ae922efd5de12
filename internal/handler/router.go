package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/student-housing/internal/obs"
	"github.com/Shivanand-hulikatti/student-housing/internal/service"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Listings       *service.ListingService
	Bookings       *service.BookingService
	Profiles       *service.ProfileService
	Auth           *Authenticator
	Metrics        *obs.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	listings := NewListingHandler(d.Listings, d.Logger)
	bookings := NewBookingHandler(d.Bookings, d.Logger)
	profiles := NewProfileHandler(d.Profiles, d.Logger, d.MaxUploadBytes)
	admin := NewAdminHandler(d.Listings, d.Profiles, d.Logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(d.Logger))        // structured access log
	r.Use(Metrics(d.Metrics))
	r.Use(CORS)
	if d.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(d.RequestTimeout))
	}

	r.Get("/health", HealthCheck)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		r.Get("/listings", listings.Search)
		r.Get("/listings/{id}", listings.Get)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Post("/listings", listings.Create)
			r.Put("/listings/{id}", listings.Update)
			r.Delete("/listings/{id}", listings.Delete)
			r.Post("/listings/{id}/bookings", bookings.Book)
			r.Get("/listings/{id}/bookings", bookings.ListForListing)
			r.Delete("/bookings/{id}", bookings.Cancel)

			r.Route("/me", func(r chi.Router) {
				r.Get("/listings", listings.ListMine)
				r.Get("/bookings", bookings.ListMine)
				r.Get("/profile", profiles.Get)
				r.Post("/verification", profiles.SubmitDocument)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Get("/listings", admin.ListListings)
			r.Post("/listings/{id}/approve", admin.ApproveListing)
			r.Post("/listings/{id}/reject", admin.RejectListing)
			r.Delete("/listings/{id}", admin.DeleteListing)

			r.Get("/verifications", admin.ListVerifications)
			r.Post("/verifications/{userId}/approve", admin.ApproveVerification)
			r.Post("/verifications/{userId}/reject", admin.RejectVerification)
			r.Post("/verifications/{userId}/revoke", admin.RevokeVerification)
		})
	})

	return r
}
