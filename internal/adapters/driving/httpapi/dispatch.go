package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// DispatchHandler serves the AI request routes.
type DispatchHandler struct {
	dispatcher driving.Dispatcher
}

// NewDispatchHandler creates a handler backed by the dispatcher.
func NewDispatchHandler(d driving.Dispatcher) *DispatchHandler {
	return &DispatchHandler{dispatcher: d}
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
	domain.RequestContext
}

// CompleteRequest is the body of POST /api/v1/complete.
type CompleteRequest struct {
	Prompt string `json:"prompt"`
	domain.RequestContext
}

// InlineRequest is the body of POST /api/v1/inline.
type InlineRequest struct {
	Code     string                `json:"code"`
	Cursor   domain.CursorPosition `json:"cursor"`
	Language string                `json:"language"`
}

// TextResponse carries generated text and the model that produced it.
type TextResponse = domain.Reply

func (h *DispatchHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	writeJSON(w, http.StatusOK, h.dispatcher.Chat(r.Context(), req.Message, req.RequestContext))
}

func (h *DispatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	writeJSON(w, http.StatusOK, h.dispatcher.Complete(r.Context(), req.Prompt, req.RequestContext))
}

// Inline answers 200 with empty text when no suggestion is available.
func (h *DispatchHandler) Inline(w http.ResponseWriter, r *http.Request) {
	var req InlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Cursor.Line < 0 || req.Cursor.Column < 0 {
		writeError(w, http.StatusBadRequest, "cursor must not be negative")
		return
	}

	writeJSON(w, http.StatusOK, h.dispatcher.InlineComplete(r.Context(), req.Code, req.Cursor, req.Language))
}
