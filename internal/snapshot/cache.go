// Package snapshot holds the canonical in-memory dataset. Readers load an
// immutable snapshot through an atomic pointer; only sync passes take the
// mutex, and they never block readers.
package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/newthinker/sheetpulse/internal/core"
)

// Result is one source's outcome within a sync pass. Err non-nil marks the
// source as failed; its previous contribution is then kept.
type Result struct {
	SourceID string
	Records  []core.StockRecord
	Rejected int
	Err      error
}

// Cache holds the current merged snapshot plus per-source sync state.
type Cache struct {
	current atomic.Pointer[core.Snapshot]

	mu            sync.Mutex
	order         []string
	contributions map[string][]core.StockRecord
	states        map[string]*core.SyncState
	version       uint64
	now           func() time.Time
}

// New creates a cache that merges sources in the given order. Sources seen
// later through BeginSync are appended to that order.
func New(sourceIDs ...string) *Cache {
	c := &Cache{
		contributions: make(map[string][]core.StockRecord),
		states:        make(map[string]*core.SyncState),
		now:           time.Now,
	}
	for _, id := range sourceIDs {
		c.register(id)
	}
	c.current.Store(&core.Snapshot{Records: []core.StockRecord{}})
	return c
}

// register must be called with mu held (or before the cache is shared)
func (c *Cache) register(id string) *core.SyncState {
	if st, ok := c.states[id]; ok {
		return st
	}
	st := &core.SyncState{SourceID: id, Status: core.SyncIdle}
	c.states[id] = st
	c.order = append(c.order, id)
	return st
}

// Current returns the installed snapshot. It never returns nil and never
// blocks on a running sync.
func (c *Cache) Current() *core.Snapshot {
	return c.current.Load()
}

// BeginSync marks the given sources as syncing. Sources already syncing are
// not restarted; their in-progress state is returned instead.
func (c *Cache) BeginSync(ids []string) (started []string, inProgress []core.SyncState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		st := c.register(id)
		if st.Status == core.SyncSyncing {
			inProgress = append(inProgress, *st)
			continue
		}
		st.Status = core.SyncSyncing
		started = append(started, id)
	}
	return started, inProgress
}

// InstallSnapshot installs a fresh contribution for a single source.
func (c *Cache) InstallSnapshot(sourceID string, records []core.StockRecord) *core.Snapshot {
	return c.Apply(Result{SourceID: sourceID, Records: records})
}

// Apply finishes a sync pass. Successful sources replace their contribution,
// failed ones keep theirs and move to SyncError. The merged snapshot is
// installed once for the whole pass; if every result failed nothing is
// installed and the current snapshot is returned.
func (c *Cache) Apply(results ...Result) *core.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	succeeded := 0
	for _, r := range results {
		st := c.register(r.SourceID)
		if r.Err != nil {
			st.Status = core.SyncError
			st.LastError = r.Err.Error()
			continue
		}
		succeeded++
		records := r.Records
		if records == nil {
			records = []core.StockRecord{}
		}
		c.contributions[r.SourceID] = records
		st.Status = core.SyncSuccess
		st.RecordCount = len(records)
		st.RowsRejected = r.Rejected
		st.LastSyncAt = now
		st.LastError = ""
	}

	if succeeded == 0 {
		return c.current.Load()
	}

	c.version++
	snap := c.merge(now)
	c.current.Store(snap)
	return snap
}

// merge builds a new snapshot from all contributions; mu must be held.
func (c *Cache) merge(now time.Time) *core.Snapshot {
	total := 0
	sources := 0
	for _, id := range c.order {
		if recs, ok := c.contributions[id]; ok {
			total += len(recs)
			sources++
		}
	}

	records := make([]core.StockRecord, 0, total)
	for _, id := range c.order {
		records = append(records, c.contributions[id]...)
	}

	return &core.Snapshot{
		Records:     records,
		SyncedAt:    now,
		SourceCount: sources,
		Version:     c.version,
	}
}

// State returns a copy of one source's sync state.
func (c *Cache) State(id string) (core.SyncState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[id]
	if !ok {
		return core.SyncState{}, false
	}
	return *st, true
}

// States returns copies of every known source's state in merge order.
func (c *Cache) States() []core.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]core.SyncState, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, *c.states[id])
	}
	return result
}
