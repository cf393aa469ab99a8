package rest

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC(),
	})
}

func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"projectName": "Nizamla",
		"description": "task manager",
		"version":     h.version,
	})
}

// dbTest pings the store with a short deadline.
func (h *Handler) dbTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.store.Ping(pingCtx); err != nil {
		h.logger.Warn(ctx, "database ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Error:      "database connection failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"canConnect": true,
		"timestamp":  h.now().UTC(),
	})
}
