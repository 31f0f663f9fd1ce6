// Package scheduler runs periodic sync passes on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Syncer runs one sync pass over every source
type Syncer interface {
	TriggerSync(ctx context.Context, ids ...string) (*core.SyncReport, error)
}

// Scheduler triggers syncs on a standard five-field cron spec
type Scheduler struct {
	cron   *cron.Cron
	syncer Syncer
	ctx    context.Context
	logger *zap.Logger
}

// New creates a scheduler. Syncs run with ctx, so cancelling it aborts
// in-flight passes.
func New(ctx context.Context, syncer Syncer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		syncer: syncer,
		ctx:    ctx,
		logger: logger,
	}
}

// Register adds the sync job. An empty spec registers nothing.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register sync schedule %q: %w", spec, err)
	}
	s.logger.Info("sync scheduled", zap.String("schedule", spec))
	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron loop and waits for a running sync to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow runs one sync pass immediately and logs its outcome
func (s *Scheduler) RunNow() {
	report, err := s.syncer.TriggerSync(s.ctx)
	switch {
	case errors.Is(err, core.ErrSyncFailed):
		s.logger.Error("scheduled sync failed", zap.Error(err))
	case err != nil:
		s.logger.Error("scheduled sync", zap.Error(err))
	case report != nil:
		s.logger.Info("scheduled sync",
			zap.String("status", string(report.Status)),
			zap.Int("records", report.TotalRecords),
			zap.Int("errors", len(report.Errors)),
		)
	}
}
