package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/student-housing/internal/service"
)

// multipartOverhead is allowed on top of the document size for the other
// form parts and boundaries.
const multipartOverhead = 64 << 10

// ProfileHandler serves the caller's verification profile.
type ProfileHandler struct {
	svc            *service.ProfileService
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Get handles GET /me/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SubmitDocument handles POST /me/verification
// Expects multipart/form-data with a "document" file and an optional
// "full_name" field.
func (h *ProfileHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer file.Close()

	p, err := h.svc.SubmitDocument(r.Context(), userID(r), r.FormValue("full_name"), file)
	if err != nil {
		writeServiceError(w, h.logger, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
