package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/service"
)

// ListingHandler serves listing browse and owner CRUD.
type ListingHandler struct {
	svc    *service.ListingService
	logger *slog.Logger
}

// NewListingHandler constructs a ListingHandler.
func NewListingHandler(svc *service.ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{svc: svc, logger: logger}
}

// Search handles GET /listings
// Filters: q, location, max_price, gender, available, limit, offset.
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listings, err := h.svc.Search(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

// Get handles GET /listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Create handles POST /listings
// New listings wait for moderation before they are visible.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ListingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	l, err := h.svc.Create(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// Update handles PUT /listings/{id}
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.ListingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	l, err := h.svc.Update(r.Context(), userID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Delete handles DELETE /listings/{id}
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine handles GET /me/listings
func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.ListMine(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func parseFilter(r *http.Request) (model.ListingFilter, error) {
	q := r.URL.Query()
	f := model.ListingFilter{
		Query:    q.Get("q"),
		Location: q.Get("location"),
	}
	if raw := q.Get("max_price"); raw != "" {
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, errors.New("max_price must be an integer")
		}
		f.MaxPrice = p
	}
	if raw := q.Get("gender"); raw != "" {
		g, err := model.ParseGender(raw)
		if err != nil {
			return f, errors.New("gender must be Male or Female")
		}
		f.Gender = &g
	}
	if raw := q.Get("available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("available must be true or false")
		}
		f.AvailableOnly = b
	}
	var err error
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		return f, err
	}
	return f, nil
}
