package snapshot

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recs(source string, symbols ...string) []core.StockRecord {
	out := make([]core.StockRecord, len(symbols))
	for i, s := range symbols {
		out[i] = core.StockRecord{Symbol: s, SourceID: source}
	}
	return out
}

func symbols(snap *core.Snapshot) []string {
	out := make([]string, len(snap.Records))
	for i, r := range snap.Records {
		out[i] = r.Symbol
	}
	return out
}

func TestCache_InitialSnapshotIsEmpty(t *testing.T) {
	c := New("a", "b")
	snap := c.Current()
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, uint64(0), snap.Version)
	assert.True(t, snap.SyncedAt.IsZero())

	st, ok := c.State("a")
	require.True(t, ok)
	assert.Equal(t, core.SyncIdle, st.Status)
}

func TestCache_ApplyMergesInSourceOrder(t *testing.T) {
	c := New("a", "b")
	started, inProgress := c.BeginSync([]string{"b", "a"})
	assert.ElementsMatch(t, []string{"a", "b"}, started)
	assert.Empty(t, inProgress)

	snap := c.Apply(
		Result{SourceID: "b", Records: recs("b", "B1", "B2")},
		Result{SourceID: "a", Records: recs("a", "A1"), Rejected: 2},
	)

	assert.Equal(t, []string{"A1", "B1", "B2"}, symbols(snap))
	assert.Equal(t, 2, snap.SourceCount)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Same(t, snap, c.Current())

	st, _ := c.State("a")
	assert.Equal(t, core.SyncSuccess, st.Status)
	assert.Equal(t, 1, st.RecordCount)
	assert.Equal(t, 2, st.RowsRejected)
	assert.False(t, st.LastSyncAt.IsZero())
}

func TestCache_FailedSourceKeepsPreviousContribution(t *testing.T) {
	c := New("a", "b")
	c.BeginSync([]string{"a", "b"})
	c.Apply(
		Result{SourceID: "a", Records: recs("a", "A-old")},
		Result{SourceID: "b", Records: recs("b", "B-old")},
	)

	c.BeginSync([]string{"a", "b"})
	snap := c.Apply(
		Result{SourceID: "a", Records: recs("a", "A-new")},
		Result{SourceID: "b", Err: errors.New("sheet unavailable")},
	)

	assert.Equal(t, []string{"A-new", "B-old"}, symbols(snap))

	st, _ := c.State("b")
	assert.Equal(t, core.SyncError, st.Status)
	assert.Equal(t, "sheet unavailable", st.LastError)
	assert.Equal(t, 1, st.RecordCount)
}

func TestCache_FailedSourceWithoutHistoryContributesNothing(t *testing.T) {
	c := New("a", "b")
	c.BeginSync([]string{"a", "b"})
	snap := c.Apply(
		Result{SourceID: "a", Records: recs("a", "A1")},
		Result{SourceID: "b", Err: errors.New("boom")},
	)

	assert.Equal(t, []string{"A1"}, symbols(snap))
	assert.Equal(t, 1, snap.SourceCount)
}

func TestCache_AllFailedKeepsSnapshot(t *testing.T) {
	c := New("a")
	c.BeginSync([]string{"a"})
	first := c.Apply(Result{SourceID: "a", Records: recs("a", "A1")})

	c.BeginSync([]string{"a"})
	second := c.Apply(Result{SourceID: "a", Err: errors.New("down")})

	assert.Same(t, first, second)
	assert.Same(t, first, c.Current())
	st, _ := c.State("a")
	assert.Equal(t, core.SyncError, st.Status)
}

func TestCache_BeginSyncSkipsInFlight(t *testing.T) {
	c := New("a", "b")
	started, _ := c.BeginSync([]string{"a"})
	require.Equal(t, []string{"a"}, started)

	started, inProgress := c.BeginSync([]string{"a", "b", "b"})
	assert.Equal(t, []string{"b"}, started)
	require.Len(t, inProgress, 1)
	assert.Equal(t, "a", inProgress[0].SourceID)
	assert.Equal(t, core.SyncSyncing, inProgress[0].Status)

	c.Apply(Result{SourceID: "a", Records: recs("a", "A1")}, Result{SourceID: "b", Records: nil})
	started, inProgress = c.BeginSync([]string{"a"})
	assert.Equal(t, []string{"a"}, started)
	assert.Empty(t, inProgress)
}

func TestCache_InstallSnapshot(t *testing.T) {
	c := New()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	snap := c.InstallSnapshot("solo", recs("solo", "X", "Y"))
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, fixed, snap.SyncedAt)

	states := c.States()
	require.Len(t, states, 1)
	assert.Equal(t, "solo", states[0].SourceID)
	assert.Equal(t, fixed, states[0].LastSyncAt)
}

func TestCache_PreviousSnapshotNotMutated(t *testing.T) {
	c := New("a")
	c.BeginSync([]string{"a"})
	old := c.Apply(Result{SourceID: "a", Records: recs("a", "A1", "A2")})

	c.BeginSync([]string{"a"})
	c.Apply(Result{SourceID: "a", Records: recs("a", "A3")})

	assert.Equal(t, []string{"A1", "A2"}, symbols(old))
	assert.Equal(t, []string{"A3"}, symbols(c.Current()))
}

func TestCache_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	c := New("a", "b")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := c.Current()
				// every pass installs 3 records from a and 2 from b
				if n := snap.Len(); n != 0 && n != 5 {
					t.Errorf("observed partial snapshot of %d records", n)
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		c.BeginSync([]string{"a", "b"})
		c.Apply(
			Result{SourceID: "a", Records: recs("a", fmt.Sprint("A", i), "A", "A")},
			Result{SourceID: "b", Records: recs("b", "B", "B")},
		)
	}
	close(stop)
	wg.Wait()
}
