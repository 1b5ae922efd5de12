package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/service"
)

// AdminHandler serves listing moderation and identity verification review.
type AdminHandler struct {
	listings *service.ListingService
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(listings *service.ListingService, profiles *service.ProfileService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{listings: listings, profiles: profiles, logger: logger}
}

// ListListings handles GET /admin/listings?status=pending
func (h *AdminHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	status := model.ListingPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := model.ParseListingStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "status must be pending, approved or rejected")
			return
		}
		status = s
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listings, err := h.listings.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

// ApproveListing handles POST /admin/listings/{id}/approve
func (h *AdminHandler) ApproveListing(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ListingApproved)
}

// RejectListing handles POST /admin/listings/{id}/reject
func (h *AdminHandler) RejectListing(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ListingRejected)
}

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, status model.ListingStatus) {
	l, err := h.listings.Moderate(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeleteListing handles DELETE /admin/listings/{id}
func (h *AdminHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := h.listings.AdminDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVerifications handles GET /admin/verifications
// Pending profiles come first; documents are linked through presigned URLs.
func (h *AdminHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.Review(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "profile not found")
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// ApproveVerification handles POST /admin/verifications/{userId}/approve
func (h *AdminHandler) ApproveVerification(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.profiles.Approve)
}

// RejectVerification handles POST /admin/verifications/{userId}/reject
func (h *AdminHandler) RejectVerification(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.profiles.Reject)
}

// RevokeVerification handles POST /admin/verifications/{userId}/revoke
func (h *AdminHandler) RevokeVerification(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.profiles.Revoke)
}

func (h *AdminHandler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error) {
	id := chi.URLParam(r, "userId")
	if err := fn(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "profile not found")
		return
	}
	p, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
