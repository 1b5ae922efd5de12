// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/student-housing/internal/allocation"
	"github.com/Shivanand-hulikatti/student-housing/internal/model"
	"github.com/Shivanand-hulikatti/student-housing/internal/repository"
	"github.com/Shivanand-hulikatti/student-housing/internal/service"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service and repository errors to HTTP statuses.
// notFound is the message used for repository.ErrNotFound.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrForbidden):
		writeError(w, http.StatusForbidden, "you do not own this resource")
	case errors.Is(err, repository.ErrCapacityBelowFilled):
		writeError(w, http.StatusConflict, "capacity cannot be lower than the spots already booked")
	case errors.Is(err, repository.ErrLostRace):
		writeError(w, http.StatusConflict, "the listing changed while saving, please retry")
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "document uploads are not available right now")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// bookingStatus maps an allocation failure to its HTTP status.
func bookingStatus(kind allocation.Kind) int {
	switch kind {
	case allocation.KindInvalidRequest:
		return http.StatusBadRequest
	case allocation.KindNotFound:
		return http.StatusNotFound
	case allocation.KindAlreadyBooked, allocation.KindFull, allocation.KindGenderMismatch:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
