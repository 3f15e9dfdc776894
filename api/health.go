package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moodlemate/moodlemate/internal/log"
	"github.com/moodlemate/moodlemate/internal/rag"
)

type healthHandler struct {
	pipeline *rag.Pipeline
	pool     *pgxpool.Pool
	logger   log.Logger
}

// health is the liveness probe. Returns 200 while the process serves.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// ready is the readiness probe: database reachable and the pipeline
// components serviceable.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			h.logger.Error("readiness check failed, database unreachable", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", h.logger)
			return
		}
	}

	if !h.pipeline.HealthCheck(ctx) {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "pipeline unhealthy", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, h.logger)
}
