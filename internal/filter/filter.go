// Package filter evaluates FilterCriteria over a snapshot.
package filter

import (
	"strings"

	"github.com/newthinker/sheetpulse/internal/core"
)

// Apply returns the records of snap that satisfy every present criterion,
// in snapshot order. The result never shares its backing array with the
// snapshot, so callers may reorder or modify it; empty criteria return a
// copy of every record.
func Apply(snap *core.Snapshot, criteria core.FilterCriteria) []core.StockRecord {
	if snap == nil {
		return []core.StockRecord{}
	}
	if criteria.IsEmpty() {
		return append(make([]core.StockRecord, 0, len(snap.Records)), snap.Records...)
	}

	result := make([]core.StockRecord, 0)
	for _, rec := range snap.Records {
		if Matches(rec, criteria) {
			result = append(result, rec)
		}
	}
	return result
}

// Matches reports whether one record satisfies the criteria. A nil numeric
// field never satisfies a bound on that field.
func Matches(rec core.StockRecord, c core.FilterCriteria) bool {
	if !enumMatches(string(rec.Trend), c.Trend) {
		return false
	}
	if !enumMatches(string(rec.TrendStrength), c.TrendStrength) {
		return false
	}
	if !enumMatches(string(rec.Volatility), c.Volatility) {
		return false
	}
	if !enumMatches(string(rec.SentimentText), c.SentimentText) {
		return false
	}
	if c.MinSentiment != nil && (rec.SentimentScore == nil || *rec.SentimentScore < *c.MinSentiment) {
		return false
	}
	if c.MaxSentiment != nil && (rec.SentimentScore == nil || *rec.SentimentScore > *c.MaxSentiment) {
		return false
	}
	if c.MinADX != nil && (rec.ADX == nil || *rec.ADX < *c.MinADX) {
		return false
	}
	return true
}

func enumMatches(value, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return true
	}
	return strings.EqualFold(value, want)
}
