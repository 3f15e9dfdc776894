package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/moodlemate/moodlemate/internal/log"
	"github.com/moodlemate/moodlemate/internal/rag"
)

// ChatRequest is the inbound chat payload. A missing session_id gets
// one generated server-side. Empty messages are passed through to the
// pipeline unrejected.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is the outbound chat payload.
type ChatResponse struct {
	Answer    string       `json:"answer"`
	Sources   []rag.Source `json:"sources"`
	SessionID string       `json:"session_id"`
}

type chatHandler struct {
	pipeline *rag.Pipeline
	logger   log.Logger
}

// send handles POST /api/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	answer := h.pipeline.Answer(r.Context(), req.Message, req.SessionID)

	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:    answer.Text,
		Sources:   answer.Sources,
		SessionID: answer.SessionID,
	}, h.logger)
}
