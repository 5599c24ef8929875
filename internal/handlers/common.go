package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diamondline/props-api/internal/logic"
	"github.com/diamondline/props-api/internal/models"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]bool, len(h.checks))
	allHealthy := true
	for name, check := range h.checks {
		err := check(ctx)
		checks[name] = err == nil
		if err != nil {
			allHealthy = false
			h.logger.Warnw("Readiness check failed", "dependency", name, "error", err)
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	body := map[string]interface{}{
		"ready":  allHealthy,
		"checks": checks,
	}
	if h.pool != nil {
		body["queueDepth"] = h.pool.QueueDepth()
	}
	h.jsonResponse(w, status, body)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warnw("Failed to encode response", "error", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, logic.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, logic.ErrMissingFeature):
		return http.StatusUnprocessableEntity
	case errors.Is(err, logic.ErrInvalidOdds), errors.Is(err, logic.ErrUnsupportedProp):
		return http.StatusBadRequest
	case errors.Is(err, logic.ErrAmbiguous),
		errors.Is(err, logic.ErrStaleDerivation),
		errors.Is(err, logic.ErrDerivationActive):
		return http.StatusConflict
	case errors.Is(err, logic.ErrModelNotLoaded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// serviceError writes err with its mapped status. Unexpected errors are logged
// and their text withheld from the client.
func (h *Handler) serviceError(w http.ResponseWriter, err error, msg string, keysAndValues ...interface{}) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Errorw(msg, append([]interface{}{"error", err}, keysAndValues...)...)
		h.errorResponse(w, status, msg)
		return
	}
	h.errorResponse(w, status, err.Error())
}

func playerIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "playerID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid player id %q", raw)
	}
	return id, nil
}

// dateParam reads an optional calendar date query parameter, defaulting to
// today in UTC.
func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return models.ParseDate(raw)
}

func propParam(raw string) (models.PropType, error) {
	p := models.PropType(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%q: %w", raw, logic.ErrUnsupportedProp)
	}
	return p, nil
}
