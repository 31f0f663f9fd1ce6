// internal/api/handler/api/sync.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/sheetpulse/internal/api/job"
	"github.com/newthinker/sheetpulse/internal/api/response"
	"github.com/newthinker/sheetpulse/internal/app"
	"github.com/newthinker/sheetpulse/internal/core"
	"go.uber.org/zap"
)

// JobTypeSync is the job type of background sync passes
const JobTypeSync = "sync"

// asyncSyncTimeout bounds a background sync detached from its request
const asyncSyncTimeout = 5 * time.Minute

// SyncApp defines the interface needed from app.App.
type SyncApp interface {
	TriggerSync(ctx context.Context, ids ...string) (*core.SyncReport, error)
	SyncState(id string) (core.SyncState, error)
	SyncStates() []core.SyncState
}

// JobObserver is told how many jobs of a type are unfinished
type JobObserver func(jobType string, active int)

// SyncHandler handles sync API requests.
type SyncHandler struct {
	app      SyncApp
	jobStore *job.Store
	observe  JobObserver
	logger   *zap.Logger
}

// NewSyncHandler creates a new sync handler. observe may be nil.
func NewSyncHandler(app SyncApp, jobStore *job.Store, observe JobObserver, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observe == nil {
		observe = func(string, int) {}
	}
	return &SyncHandler{
		app:      app,
		jobStore: jobStore,
		observe:  observe,
		logger:   logger,
	}
}

// Trigger runs a sync pass. With async=true the pass runs as a job and
// the job id is returned immediately.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ids := app.ParseSourceList(r.URL.Query().Get("source"))

	async := false
	if raw := r.URL.Query().Get("async"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrInvalidRequest, errors.New("async must be a boolean")))
			return
		}
		async = v
	}

	if async {
		h.triggerAsync(w, ids)
		return
	}

	report, err := h.app.TriggerSync(r.Context(), ids...)
	if err != nil {
		if report == nil {
			response.Error(w, response.StatusFor(err), err)
			return
		}
		response.ErrorWithData(w, response.StatusFor(err), err, report)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

func (h *SyncHandler) triggerAsync(w http.ResponseWriter, ids []string) {
	// Unknown ids fail the request, not the job
	for _, id := range ids {
		if _, err := h.app.SyncState(id); err != nil {
			response.Error(w, response.StatusFor(err), err)
			return
		}
	}

	j := h.jobStore.Create(JobTypeSync)
	h.observe(JobTypeSync, h.jobStore.Active(JobTypeSync))

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	go h.runSync(jobID, ids)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// runSync executes a sync pass and records it on the job.
func (h *SyncHandler) runSync(jobID string, ids []string) {
	h.jobStore.Start(jobID)

	ctx, cancel := context.WithTimeout(context.Background(), asyncSyncTimeout)
	defer cancel()
	report, err := h.app.TriggerSync(ctx, ids...)

	if err := h.jobStore.Finish(jobID, report, err); err != nil {
		h.logger.Warn("sync job vanished", zap.String("job_id", jobID), zap.Error(err))
	}
	h.observe(JobTypeSync, h.jobStore.Active(JobTypeSync))
}

// Status returns the sync state of one source, or of every source.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("source")
	if id == "" {
		response.List(w, h.app.SyncStates())
		return
	}

	st, err := h.app.SyncState(id)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// Job returns the status of a sync job.
func (h *SyncHandler) Job(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":     j.ID,
		"type":       j.Type,
		"status":     j.Status,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}
	if j.Status.Done() && j.Result != nil {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}
