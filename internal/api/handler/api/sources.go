// internal/api/handler/api/sources.go
package api

import (
	"context"
	"net/http"

	"github.com/newthinker/sheetpulse/internal/api/response"
	"github.com/newthinker/sheetpulse/internal/app"
	"github.com/newthinker/sheetpulse/internal/core"
)

// SourcesApp defines the interface needed from app.App.
type SourcesApp interface {
	Sources() []app.SourceStatus
	Alerts(ctx context.Context, sourceID string) ([]core.Alert, error)
}

// SourcesHandler handles source listing and live alert reads.
type SourcesHandler struct {
	app SourcesApp
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(app SourcesApp) *SourcesHandler {
	return &SourcesHandler{app: app}
}

// List returns the configured sources with their sync state.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	response.List(w, h.app.Sources())
}

// Alerts reads the alerts worksheet of a source.
func (h *SourcesHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.app.Alerts(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.List(w, alerts)
}
