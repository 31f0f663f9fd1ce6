// internal/api/handler/api/fakes_test.go
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newthinker/sheetpulse/internal/app"
	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/newthinker/sheetpulse/internal/grounding"
	"github.com/newthinker/sheetpulse/internal/source"
)

// fakeApp implements every handler interface over fixed data
type fakeApp struct {
	mu       sync.Mutex
	records  []core.StockRecord
	states   map[string]core.SyncState
	syncErr  error
	syncIDs  [][]string
	criteria core.FilterCriteria
	answer   *grounding.Answer
	askErr   error
	alerts   []core.Alert
	alertErr error
}

func newFakeApp(ids ...string) *fakeApp {
	f := &fakeApp{states: make(map[string]core.SyncState)}
	for _, id := range ids {
		f.states[id] = core.SyncState{SourceID: id, Status: core.SyncIdle}
	}
	return f
}

func (f *fakeApp) TriggerSync(ctx context.Context, ids ...string) (*core.SyncReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.states[id]; !ok {
			return nil, core.WrapError(core.ErrSourceNotFound, fmt.Errorf("source %q", id))
		}
	}
	f.syncIDs = append(f.syncIDs, ids)

	report := &core.SyncReport{Status: core.SyncSuccess, TotalRecords: len(f.records)}
	if f.syncErr != nil {
		report.Status = core.SyncError
		report.Errors = []core.SourceError{{SourceID: "a", Error: f.syncErr.Error()}}
		return report, core.WrapError(core.ErrSyncFailed, f.syncErr)
	}
	return report, nil
}

func (f *fakeApp) syncCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syncIDs)
}

func (f *fakeApp) SyncState(id string) (core.SyncState, error) {
	st, ok := f.states[id]
	if !ok {
		return core.SyncState{}, core.WrapError(core.ErrSourceNotFound, fmt.Errorf("source %q", id))
	}
	return st, nil
}

func (f *fakeApp) SyncStates() []core.SyncState {
	var out []core.SyncState
	for _, st := range f.states {
		out = append(out, st)
	}
	return out
}

func (f *fakeApp) Stocks(criteria core.FilterCriteria) []core.StockRecord {
	f.criteria = criteria
	return f.records
}

func (f *fakeApp) Analytics() core.AnalyticsSummary {
	return core.AnalyticsSummary{TotalStocks: len(f.records)}
}

func (f *fakeApp) Insights() []string {
	return []string{"No data available"}
}

func (f *fakeApp) Ask(ctx context.Context, question string) (*grounding.Answer, error) {
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.answer, nil
}

func (f *fakeApp) Sources() []app.SourceStatus {
	return []app.SourceStatus{{
		Info:  source.Info{ID: "a", Kind: "gsheet"},
		State: f.states["a"],
	}}
}

func (f *fakeApp) Alerts(ctx context.Context, sourceID string) ([]core.Alert, error) {
	if sourceID == "missing" {
		return nil, core.WrapError(core.ErrSourceNotFound, errors.New("source \"missing\""))
	}
	return f.alerts, f.alertErr
}
