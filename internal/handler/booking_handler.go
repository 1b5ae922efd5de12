package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/student-housing/internal/allocation"
	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/service"
)

// BookingHandler serves booking requests, cancellations and ledgers.
type BookingHandler struct {
	svc    *service.BookingService
	logger *slog.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

// Book handles POST /listings/{id}/bookings
// Responds with the booking outcome envelope in both success and failure.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req model.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.BookingOutcome{
			ErrorKind: string(allocation.KindInvalidRequest),
			Message:   "invalid request body: " + err.Error(),
		})
		return
	}
	alloc, err := h.svc.Book(r.Context(), userID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeJSON(w, bookingStatus(allocation.KindOf(err)), service.Outcome(nil, err))
		return
	}
	writeJSON(w, http.StatusCreated, service.Outcome(alloc, nil))
}

// Cancel handles DELETE /bookings/{id}
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	alloc, err := h.svc.Cancel(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, bookingStatus(allocation.KindOf(err)), service.Outcome(nil, err))
		return
	}
	writeJSON(w, http.StatusOK, service.Outcome(alloc, nil))
}

// ListMine handles GET /me/bookings
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListMine(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "booking not found")
		return
	}
	if bookings == nil {
		bookings = []model.BookingWithListing{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ListForListing handles GET /listings/{id}/bookings
// Only the listing owner or an admin can read the ledger.
func (h *BookingHandler) ListForListing(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	bookings, err := h.svc.ListForListing(r.Context(), chi.URLParam(r, "id"), p.UserID, p.Admin)
	if err != nil {
		writeServiceError(w, h.logger, err, "listing not found")
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}
