package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/newthinker/sheetpulse/internal/grounding"
	"github.com/newthinker/sheetpulse/internal/metrics"
	"github.com/newthinker/sheetpulse/internal/normalize"
	"github.com/newthinker/sheetpulse/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	id string

	mu      sync.Mutex
	rows    []normalize.Row
	err     error
	alerts  []normalize.Row
	block   chan struct{} // when set, FetchRows waits on it or ctx
	entered chan struct{}
	calls   atomic.Int32
}

func (f *fakeSource) ID() string   { return f.id }
func (f *fakeSource) Kind() string { return "fake" }

func (f *fakeSource) FetchRows(ctx context.Context) ([]normalize.Row, error) {
	f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows, f.err
}

func (f *fakeSource) set(rows []normalize.Row, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows, f.err = rows, err
}

type fakeAlertSource struct {
	*fakeSource
	sheet string
}

func (f *fakeAlertSource) FetchWorksheet(ctx context.Context, name string) ([]normalize.Row, error) {
	f.sheet = name
	return f.alerts, nil
}

func newTestApp(t *testing.T, answerer func(question, text string) (string, error), sources ...source.Source) *App {
	t.Helper()
	reg := source.NewRegistry()
	for _, s := range sources {
		reg.Register(s)
	}
	var ans grounding.Answerer
	if answerer != nil {
		ans = &funcAnswerer{fn: answerer}
	}
	return New(Options{SyncTimeout: time.Second}, reg, ans, metrics.NewRegistry(), nil)
}

type funcAnswerer struct {
	fn func(question, text string) (string, error)
}

func (f *funcAnswerer) Answer(ctx context.Context, question, text string) (string, error) {
	return f.fn(question, text)
}

func TestTriggerSync_MergesInSourceOrder(t *testing.T) {
	a := &fakeSource{id: "a", rows: []normalize.Row{{"Symbol": "AAA", "ADX": 40}, {"Symbol": ""}}}
	b := &fakeSource{id: "b", rows: []normalize.Row{{"Symbol": "BBB"}}}
	app := newTestApp(t, nil, a, b)

	report, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.SyncSuccess, report.Status)
	assert.Equal(t, 2, report.TotalRecords)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Sources, 2)
	assert.Equal(t, 1, report.Sources[0].RowsRejected)

	stocks := app.Stocks(core.FilterCriteria{})
	require.Len(t, stocks, 2)
	assert.Equal(t, "AAA", stocks[0].Symbol)
	assert.Equal(t, "a", stocks[0].SourceID)
	assert.Equal(t, "BBB", stocks[1].Symbol)
	assert.Equal(t, report.LastSyncAt, app.Snapshot().SyncedAt)
}

func TestTriggerSync_FailedSourceKeepsPreviousRecords(t *testing.T) {
	a := &fakeSource{id: "a", rows: []normalize.Row{{"Symbol": "AAA"}}}
	b := &fakeSource{id: "b", rows: []normalize.Row{{"Symbol": "BBB"}, {"Symbol": "BB2"}}}
	app := newTestApp(t, nil, a, b)

	_, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	a.set([]normalize.Row{{"Symbol": "AA2"}}, nil)
	b.set(nil, errors.New("503 service unavailable"))

	report, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.SyncSuccess, report.Status)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "b", report.Errors[0].SourceID)

	var symbols []string
	for _, r := range app.Stocks(core.FilterCriteria{}) {
		symbols = append(symbols, r.Symbol)
	}
	assert.Equal(t, []string{"AA2", "BBB", "BB2"}, symbols)

	st, err := app.SyncState("b")
	require.NoError(t, err)
	assert.Equal(t, core.SyncError, st.Status)
	assert.Contains(t, st.LastError, "503")
	assert.Equal(t, 2, st.RecordCount)
}

func TestTriggerSync_AllFailed(t *testing.T) {
	a := &fakeSource{id: "a", rows: []normalize.Row{{"Symbol": "AAA"}}}
	app := newTestApp(t, nil, a)

	first, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	a.set(nil, errors.New("boom"))
	report, err := app.TriggerSync(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSyncFailed))
	require.NotNil(t, report)
	assert.Equal(t, core.SyncError, report.Status)
	assert.Equal(t, 1, report.TotalRecords)
	assert.Equal(t, first.LastSyncAt, report.LastSyncAt)
	assert.Equal(t, uint64(1), app.Snapshot().Version)
}

func TestTriggerSync_UnknownSource(t *testing.T) {
	app := newTestApp(t, nil, &fakeSource{id: "a"})

	_, err := app.TriggerSync(context.Background(), "a", "missing")
	assert.True(t, errors.Is(err, core.ErrSourceNotFound))

	st, _ := app.SyncState("a")
	assert.Equal(t, core.SyncIdle, st.Status)
}

func TestTriggerSync_NoSources(t *testing.T) {
	app := newTestApp(t, nil)

	report, err := app.TriggerSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SyncIdle, report.Status)
	assert.Equal(t, 0, report.TotalRecords)
}

func TestTriggerSync_TimeoutIsSourceFailure(t *testing.T) {
	slow := &fakeSource{id: "slow", block: make(chan struct{})}
	fast := &fakeSource{id: "fast", rows: []normalize.Row{{"Symbol": "FST"}}}

	reg := source.NewRegistry()
	reg.Register(slow)
	reg.Register(fast)
	app := New(Options{SyncTimeout: 20 * time.Millisecond}, reg, nil, nil, nil)

	report, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "slow", report.Errors[0].SourceID)
	assert.Equal(t, 1, report.TotalRecords)

	st, _ := app.SyncState("slow")
	assert.Equal(t, core.SyncError, st.Status)
}

func TestTriggerSync_InProgressNotRestarted(t *testing.T) {
	slow := &fakeSource{id: "slow", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	app := newTestApp(t, nil, slow)

	done := make(chan *core.SyncReport)
	go func() {
		report, _ := app.TriggerSync(context.Background())
		done <- report
	}()
	<-slow.entered

	report, err := app.TriggerSync(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, core.SyncSyncing, report.Status)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, core.SyncSyncing, report.Sources[0].Status)

	close(slow.block)
	first := <-done
	assert.Equal(t, core.SyncSuccess, first.Status)
	assert.Equal(t, int32(1), slow.calls.Load())

	st, _ := app.SyncState("slow")
	assert.Equal(t, core.SyncSuccess, st.Status)
}

func TestReadsDuringSync(t *testing.T) {
	src := &fakeSource{id: "a", rows: []normalize.Row{{"Symbol": "AAA", "Trend": "Uptrend"}}}
	app := newTestApp(t, nil, src)
	_, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			app.TriggerSync(context.Background())
		}()
		go func() {
			defer wg.Done()
			summary := app.Analytics()
			assert.Equal(t, 1, summary.TotalStocks)
			assert.Len(t, app.Stocks(core.FilterCriteria{Trend: "uptrend"}), 1)
		}()
	}
	wg.Wait()
}

func TestAnalyticsAndInsights(t *testing.T) {
	src := &fakeSource{id: "a", rows: []normalize.Row{
		{"Symbol": "AAA", "ADX": 40, "Sentiment_Score": 0.2, "Trend": "Uptrend"},
		{"Symbol": "BBB", "ADX": 20, "Sentiment_Score": 0.5, "Trend": "Downtrend"},
	}}
	app := newTestApp(t, nil, src)

	assert.Equal(t, []string{"No data available"}, app.Insights())

	_, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	summary := app.Analytics()
	assert.Equal(t, 2, summary.TotalStocks)
	require.NotEmpty(t, summary.TopPerformers)
	assert.Equal(t, "AAA", summary.TopPerformers[0].Symbol)
	assert.Contains(t, app.Insights(), "50% of stocks are in uptrend")
}

func TestAsk(t *testing.T) {
	src := &fakeSource{id: "a", rows: []normalize.Row{{"Symbol": "AAA"}, {"Symbol": "BBB"}}}
	var gotText string
	app := newTestApp(t, func(question, text string) (string, error) {
		gotText = text
		return "BBB looks best.", nil
	}, src)
	_, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	answer, err := app.Ask(context.Background(), "Which looks best?")
	require.NoError(t, err)

	assert.Equal(t, "BBB looks best.", answer.Answer)
	require.Len(t, answer.Records, 1)
	assert.Equal(t, "BBB", answer.Records[0].Symbol)
	assert.Contains(t, gotText, "- AAA [a]:")
}

func TestAsk_NoProvider(t *testing.T) {
	app := newTestApp(t, nil, &fakeSource{id: "a"})

	_, err := app.Ask(context.Background(), "anything?")
	assert.True(t, errors.Is(err, core.ErrAnswerUnavailable))
}

func TestAsk_EmptyQuestion(t *testing.T) {
	app := newTestApp(t, func(string, string) (string, error) { return "x", nil })

	_, err := app.Ask(context.Background(), "")
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))
}

func TestSources(t *testing.T) {
	app := newTestApp(t, nil, &fakeSource{id: "a"}, &fakeSource{id: "b"})

	sources := app.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "a", sources[0].ID)
	assert.Equal(t, "fake", sources[0].Kind)
	assert.Equal(t, core.SyncIdle, sources[0].State.Status)

	_, err := app.SyncState("missing")
	assert.True(t, errors.Is(err, core.ErrSourceNotFound))
	assert.Len(t, app.SyncStates(), 2)
}

func TestAlerts(t *testing.T) {
	plain := &fakeSource{id: "plain"}
	sheet := &fakeAlertSource{
		fakeSource: &fakeSource{id: "sheet", alerts: []normalize.Row{
			{"Symbol": "aaa", "Indicator": "RSI", "Volumn": "1,200"},
			{"Indicator": "MACD"},
		}},
	}
	app := newTestApp(t, nil, plain, sheet)

	alerts, err := app.Alerts(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "AAA", alerts[0].Symbol)
	require.NotNil(t, alerts[0].Volume)
	assert.Equal(t, 1200.0, *alerts[0].Volume)
	assert.Equal(t, "TradingView_Alerts", sheet.sheet)

	_, err = app.Alerts(context.Background(), "plain")
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))

	_, err = app.Alerts(context.Background(), "missing")
	assert.True(t, errors.Is(err, core.ErrSourceNotFound))
}

func TestParseSourceList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseSourceList(" a, ,b "))
	assert.Nil(t, ParseSourceList(""))
}

func TestSyncStates_AfterPartialFailure(t *testing.T) {
	a := &fakeSource{id: "a", rows: []normalize.Row{{"Symbol": "AAA"}, {"Ticker": " "}}}
	b := &fakeSource{id: "b", err: errors.New("permission denied")}
	app := newTestApp(t, nil, a, b)

	_, err := app.TriggerSync(context.Background())
	require.NoError(t, err)

	want := []core.SyncState{
		{SourceID: "a", Status: core.SyncSuccess, RecordCount: 1, RowsRejected: 1},
		{SourceID: "b", Status: core.SyncError},
	}
	ignore := cmpopts.IgnoreFields(core.SyncState{}, "LastSyncAt", "LastError")
	if diff := cmp.Diff(want, app.SyncStates(), ignore); diff != "" {
		t.Errorf("SyncStates() mismatch (-want +got):\n%s", diff)
	}

	st, _ := app.SyncState("b")
	assert.Contains(t, st.LastError, "SOURCE_FETCH_FAILED")
	assert.Contains(t, st.LastError, "permission denied")
}
