package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zamanbank/assistant/internal/assistant"
)

const (
	// maxBodyBytes bounds inbound request bodies.
	maxBodyBytes = 64 * 1024

	// maxMessageLength bounds a single user message.
	maxMessageLength = 4096
)

// Conversationalist runs conversational turns. Satisfied by
// *assistant.Assistant.
type Conversationalist interface {
	OnUserMessage(ctx context.Context, userID int64, text string) (assistant.Response, error)
	OnSessionStart(ctx context.Context, userID int64) (assistant.Response, error)
}

// messageHandler handles the conversational endpoints.
type messageHandler struct {
	assistant Conversationalist
	logger    *slog.Logger
}

// MessageRequest is the body of POST /api/v1/message.
type MessageRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// SessionStartRequest is the body of POST /api/v1/session/start.
type SessionStartRequest struct {
	UserID int64 `json:"user_id"`
}

// send handles POST /api/v1/message.
func (h *messageHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer", h.logger)
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "missing_text", "text is required", h.logger)
		return
	}
	if len(req.Text) > maxMessageLength {
		writeError(w, http.StatusBadRequest, "text_too_long", "text exceeds 4096 bytes", h.logger)
		return
	}

	resp, err := h.assistant.OnUserMessage(r.Context(), req.UserID, req.Text)
	if err != nil {
		h.logger.Error("message turn failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "turn_failed", "failed to process message", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

// startSession handles POST /api/v1/session/start.
func (h *messageHandler) startSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer", h.logger)
		return
	}

	resp, err := h.assistant.OnSessionStart(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("session start failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "turn_failed", "failed to start session", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}
