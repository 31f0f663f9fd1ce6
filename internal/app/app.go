// Package app wires sources, the snapshot cache, analytics and question
// answering into the operations exposed by the CLI and HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/sheetpulse/internal/analytics"
	"github.com/newthinker/sheetpulse/internal/config"
	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/newthinker/sheetpulse/internal/filter"
	"github.com/newthinker/sheetpulse/internal/grounding"
	"github.com/newthinker/sheetpulse/internal/metrics"
	"github.com/newthinker/sheetpulse/internal/normalize"
	"github.com/newthinker/sheetpulse/internal/snapshot"
	"github.com/newthinker/sheetpulse/internal/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tunes the App
type Options struct {
	SyncTimeout     time.Duration
	MaxConcurrency  int
	AlertsWorksheet string
	Grounding       grounding.Config
}

// OptionsFrom derives App options from the loaded configuration
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		SyncTimeout:     cfg.Sync.Timeout,
		MaxConcurrency:  cfg.Sync.MaxConcurrency,
		AlertsWorksheet: cfg.Alerts.Worksheet,
		Grounding: grounding.Config{
			CandidateCap: cfg.Grounding.CandidateCap,
			DisplayCap:   cfg.Grounding.DisplayCap,
			Timeout:      cfg.LLM.Timeout,
		},
	}
}

// SourceStatus describes a configured source and its sync state
type SourceStatus struct {
	source.Info
	State core.SyncState `json:"state"`
}

// App is the main application orchestrator
type App struct {
	opts     Options
	sources  *source.Registry
	cache    *snapshot.Cache
	grounder *grounding.Grounder
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// New creates an App over the registered sources. A nil answerer makes Ask
// fail with ANSWER_UNAVAILABLE; a nil metrics registry disables metrics.
func New(opts Options, sources *source.Registry, answerer grounding.Answerer, reg *metrics.Registry, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = time.Minute
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.AlertsWorksheet == "" {
		opts.AlertsWorksheet = "TradingView_Alerts"
	}
	if answerer == nil {
		answerer = noAnswerer{}
	}

	return &App{
		opts:     opts,
		sources:  sources,
		cache:    snapshot.New(sources.IDs()...),
		grounder: grounding.New(answerer, opts.Grounding, logger.Named("grounding")),
		metrics:  reg,
		logger:   logger,
	}
}

type noAnswerer struct{}

func (noAnswerer) Answer(ctx context.Context, question, text string) (string, error) {
	return "", core.WrapError(core.ErrConfigMissing, errors.New("no llm provider configured"))
}

// TriggerSync fetches the given sources, or every source when none are
// named, and installs one merged snapshot for the pass. Sources already
// syncing are reported as in progress and not fetched again. When every
// fetched source fails the report is returned together with SYNC_FAILED.
func (a *App) TriggerSync(ctx context.Context, ids ...string) (*core.SyncReport, error) {
	if len(ids) == 0 {
		ids = a.sources.IDs()
	}
	for _, id := range ids {
		if _, ok := a.sources.Get(id); !ok {
			return nil, core.WrapError(core.ErrSourceNotFound, fmt.Errorf("source %q", id))
		}
	}

	if len(ids) == 0 {
		snap := a.cache.Current()
		return &core.SyncReport{
			Status:       core.SyncIdle,
			TotalRecords: snap.Len(),
			LastSyncAt:   snap.SyncedAt,
			Sources:      []core.SyncState{},
			Message:      "no sources configured",
		}, nil
	}

	started, inProgress := a.cache.BeginSync(ids)
	if len(started) == 0 {
		snap := a.cache.Current()
		return &core.SyncReport{
			Status:       core.SyncSyncing,
			TotalRecords: snap.Len(),
			LastSyncAt:   snap.SyncedAt,
			Sources:      inProgress,
			Message:      "sync already in progress",
		}, nil
	}

	begin := time.Now()
	a.logger.Info("sync started",
		zap.Strings("sources", started),
		zap.Int("in_progress", len(inProgress)),
	)

	results := a.fetchAll(ctx, started)
	snap := a.cache.Apply(results...)

	report := &core.SyncReport{
		Status:       core.SyncSuccess,
		TotalRecords: snap.Len(),
		LastSyncAt:   snap.SyncedAt,
		Sources:      make([]core.SyncState, 0, len(ids)),
	}
	for _, id := range ids {
		if st, ok := a.cache.State(id); ok {
			report.Sources = append(report.Sources, st)
		}
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			report.Errors = append(report.Errors, core.SourceError{SourceID: r.SourceID, Error: r.Err.Error()})
		}
	}
	report.Message = fmt.Sprintf("synced %d of %d sources", len(results)-len(errs), len(results))
	if len(inProgress) > 0 {
		report.Message += fmt.Sprintf(", %d already in progress", len(inProgress))
	}

	duration := time.Since(begin)
	a.metrics.RecordSync(duration.Seconds(), snap.Len(), snap.Version)

	if len(errs) == len(results) {
		report.Status = core.SyncError
		a.logger.Error("sync failed",
			zap.Int("sources", len(results)),
			zap.Duration("duration", duration),
			zap.Error(errors.Join(errs...)),
		)
		return report, core.WrapError(core.ErrSyncFailed, errors.Join(errs...))
	}

	a.logger.Info("sync complete",
		zap.Int("records", snap.Len()),
		zap.Uint64("version", snap.Version),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", duration),
	)
	return report, nil
}

// fetchAll fetches and normalizes sources concurrently under the sync
// timeout. Results keep the order of ids.
func (a *App) fetchAll(ctx context.Context, ids []string) []snapshot.Result {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SyncTimeout)
	defer cancel()

	results := make([]snapshot.Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrency)

	for i, id := range ids {
		src, _ := a.sources.Get(id)
		g.Go(func() error {
			results[i] = a.fetchSource(gctx, src)
			return nil
		})
	}
	_ = g.Wait() // workers report failures through results

	return results
}

func (a *App) fetchSource(ctx context.Context, src source.Source) snapshot.Result {
	log := a.logger.With(zap.String("source", src.ID()))

	rows, err := src.FetchRows(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if !errors.Is(err, core.ErrSourceFetch) {
			err = source.FetchError(src.ID(), err)
		}
		log.Warn("source fetch failed", zap.Error(err))
		a.metrics.RecordSourceSync(src.ID(), string(core.SyncError), 0)
		return snapshot.Result{SourceID: src.ID(), Err: err}
	}

	res := normalize.NormalizeRows(rows, src.ID())
	if res.Rejected > 0 {
		log.Warn("rows rejected", zap.Int("rejected", res.Rejected), zap.Int("rows", len(rows)))
	}
	log.Debug("source fetched", zap.Int("records", len(res.Records)))
	a.metrics.RecordSourceSync(src.ID(), string(core.SyncSuccess), res.Rejected)

	return snapshot.Result{
		SourceID: src.ID(),
		Records:  res.Records,
		Rejected: res.Rejected,
	}
}

// Snapshot returns the installed snapshot
func (a *App) Snapshot() *core.Snapshot {
	return a.cache.Current()
}

// Stocks returns the records of the current snapshot matching criteria
func (a *App) Stocks(criteria core.FilterCriteria) []core.StockRecord {
	return filter.Apply(a.cache.Current(), criteria)
}

// Analytics summarizes the current snapshot
func (a *App) Analytics() core.AnalyticsSummary {
	return analytics.Summarize(a.cache.Current())
}

// Insights renders short observations about the current snapshot
func (a *App) Insights() []string {
	return analytics.Insights(a.Analytics())
}

// Ask answers a free-text question about the current snapshot
func (a *App) Ask(ctx context.Context, question string) (*grounding.Answer, error) {
	begin := time.Now()
	answer, err := a.grounder.Ask(ctx, a.cache.Current(), question)

	status := "ok"
	switch {
	case errors.Is(err, core.ErrInvalidRequest):
		return nil, err
	case err != nil:
		status = "unavailable"
	}
	a.metrics.RecordChat(status, time.Since(begin).Seconds())
	return answer, err
}

// SyncState returns the sync state of one source
func (a *App) SyncState(id string) (core.SyncState, error) {
	st, ok := a.cache.State(id)
	if !ok {
		return core.SyncState{}, core.WrapError(core.ErrSourceNotFound, fmt.Errorf("source %q", id))
	}
	return st, nil
}

// SyncStates returns the sync state of every source
func (a *App) SyncStates() []core.SyncState {
	return a.cache.States()
}

// Sources lists the configured sources with their sync state
func (a *App) Sources() []SourceStatus {
	infos := a.sources.Infos()
	result := make([]SourceStatus, len(infos))
	for i, info := range infos {
		st, _ := a.cache.State(info.ID)
		result[i] = SourceStatus{Info: info, State: st}
	}
	return result
}

// Alerts reads the alerts worksheet of a source live. An empty sourceID
// picks the first source that can read extra worksheets. Alerts are never
// cached.
func (a *App) Alerts(ctx context.Context, sourceID string) ([]core.Alert, error) {
	fetcher, id, err := a.alertSource(sourceID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.SyncTimeout)
	defer cancel()

	rows, err := fetcher.FetchWorksheet(ctx, a.opts.AlertsWorksheet)
	if err != nil {
		return nil, err
	}

	alerts := make([]core.Alert, 0, len(rows))
	rejected := 0
	for _, row := range rows {
		alert, err := normalize.NormalizeAlert(row)
		if err != nil {
			rejected++
			continue
		}
		alerts = append(alerts, alert)
	}
	if rejected > 0 {
		a.logger.Debug("alert rows rejected", zap.String("source", id), zap.Int("rejected", rejected))
	}
	return alerts, nil
}

func (a *App) alertSource(sourceID string) (source.WorksheetFetcher, string, error) {
	if sourceID != "" {
		src, ok := a.sources.Get(sourceID)
		if !ok {
			return nil, "", core.WrapError(core.ErrSourceNotFound, fmt.Errorf("source %q", sourceID))
		}
		fetcher, ok := src.(source.WorksheetFetcher)
		if !ok {
			return nil, "", core.WrapError(core.ErrInvalidRequest,
				fmt.Errorf("source %q cannot read worksheet %s", sourceID, a.opts.AlertsWorksheet))
		}
		return fetcher, sourceID, nil
	}

	for _, src := range a.sources.GetAll() {
		if fetcher, ok := src.(source.WorksheetFetcher); ok {
			return fetcher, src.ID(), nil
		}
	}
	return nil, "", core.WrapError(core.ErrSourceNotFound,
		fmt.Errorf("no source can read worksheet %s", a.opts.AlertsWorksheet))
}

// ParseSourceList splits a comma-separated list of source ids
func ParseSourceList(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
