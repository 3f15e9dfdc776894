package api

import (
	"net/http"

	"github.com/moodlemate/moodlemate/internal/log"
	"github.com/moodlemate/moodlemate/internal/rag"
)

type sessionHandler struct {
	memory *rag.Memory
	logger log.Logger
}

// stats handles GET /api/sessions/stats.
func (h *sessionHandler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.memory.Stats(), h.logger)
}

// clear handles DELETE /api/sessions/{id}.
func (h *sessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required", h.logger)
		return
	}

	if !h.memory.ClearSession(id) {
		writeError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
