package grounding

import (
	"testing"

	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/stretchr/testify/assert"
)

func symbols(records []core.StockRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Symbol
	}
	return out
}

func snapshotOf(syms ...string) *core.Snapshot {
	snap := &core.Snapshot{}
	for _, s := range syms {
		snap.Records = append(snap.Records, core.StockRecord{Symbol: s, SourceID: "src"})
	}
	return snap
}

func TestExtract_SnapshotOrder(t *testing.T) {
	snap := snapshotOf("AAA", "BBB", "CCC")

	got := Extract("ccc looks better than aaa.", snap, nil, 25)
	assert.Equal(t, []string{"AAA", "CCC"}, symbols(got))
}

func TestExtract_WholeTokens(t *testing.T) {
	snap := snapshotOf("BRK", "BRK.B", "AA", "MS")

	got := Extract("Consider BRK.B and AAPL; systems vary.", snap, nil, 25)
	assert.Equal(t, []string{"BRK.B"}, symbols(got))
}

func TestExtract_TrailingPunctuation(t *testing.T) {
	snap := snapshotOf("BRK", "XOM")

	got := Extract("Top pick: BRK. Also XOM-", snap, nil, 25)
	assert.Equal(t, []string{"BRK", "XOM"}, symbols(got))
}

func TestExtract_DuplicateSymbolsAcrossSources(t *testing.T) {
	snap := &core.Snapshot{Records: []core.StockRecord{
		{Symbol: "AAA", SourceID: "a"},
		{Symbol: "AAA", SourceID: "b"},
	}}

	got := Extract("AAA", snap, nil, 25)
	assert.Len(t, got, 2)
}

func TestExtract_Cap(t *testing.T) {
	snap := snapshotOf("A1", "A2", "A3")

	got := Extract("A1 A2 A3", snap, nil, 2)
	assert.Equal(t, []string{"A1", "A2"}, symbols(got))
}

func TestExtract_FallbackToCandidates(t *testing.T) {
	snap := snapshotOf("AAA", "BBB", "CCC")
	candidates := []core.StockRecord{{Symbol: "CCC"}, {Symbol: "AAA"}, {Symbol: "BBB"}}

	got := Extract("No symbols here.", snap, candidates, 2)
	assert.Equal(t, []string{"CCC", "AAA"}, symbols(got))
}

func TestExtract_EmptySnapshot(t *testing.T) {
	got := Extract("AAA", nil, nil, 25)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
