package ingest

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"openbook/internal/httpx"
)

type HTTPHandler struct {
	svc    *Service
	secret string
}

func NewHTTPHandler(svc *Service, secret string) *HTTPHandler {
	return &HTTPHandler{svc: svc, secret: secret}
}

func (h *HTTPHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	got := r.Header.Get("X-Internal-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

// Trigger handles POST /internal/jobs/sync
// @Summary Trigger catalog sync
// @Description Start a background import from Open Library
// @Tags internal
// @Produce json
// @Param X-Internal-Secret header string true "Internal secret"
// @Success 202 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /internal/jobs/sync [post]
func (h *HTTPHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid internal secret", nil)
		return
	}

	if err := h.svc.Start(r.Context(), TriggerManual); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			httpx.JSONError(w, r, http.StatusConflict, "SYNC_RUNNING", "a sync is already running", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpx.JSONAccepted(w, r, map[string]string{"message": "sync started"})
}

// Status handles GET /internal/jobs/sync
// @Summary Latest catalog sync
// @Tags internal
// @Produce json
// @Param X-Internal-Secret header string true "Internal secret"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /internal/jobs/sync [get]
func (h *HTTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid internal secret", nil)
		return
	}

	run, err := h.svc.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "no sync has run yet", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpx.JSONSuccess(w, r, run, map[string]any{"running": h.svc.Running()})
}
