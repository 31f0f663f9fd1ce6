// internal/api/handler/api/chat.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/newthinker/sheetpulse/internal/api/response"
	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/newthinker/sheetpulse/internal/grounding"
)

// maxChatBody bounds the request body of a chat message
const maxChatBody = 64 << 10

// ChatRequest is the request body for a question.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatApp defines the interface needed from app.App.
type ChatApp interface {
	Ask(ctx context.Context, question string) (*grounding.Answer, error)
}

// ChatHandler answers free-text questions about the snapshot.
type ChatHandler struct {
	app ChatApp
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(app ChatApp) *ChatHandler {
	return &ChatHandler{app: app}
}

// Ask answers the question in the request body.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidRequest, err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidRequest, errors.New("message required")))
		return
	}

	answer, err := h.app.Ask(r.Context(), req.Message)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, answer)
}
