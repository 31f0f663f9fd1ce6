package analytics

import (
	"sort"

	"github.com/newthinker/sheetpulse/internal/core"
)

// Composite score weights. Sentiment lives in [-1, 1] so it is scaled to
// roughly the ADX range before weighting.
const (
	ADXWeight       = 0.6
	SentimentWeight = 20.0
)

// TopN is the number of records reported as top performers
const TopN = 5

// Score returns the composite performance score of a record:
// 0.6*adx + 20*sentiment_score, with a missing operand counting as 0.
func Score(rec core.StockRecord) float64 {
	var adx, sentiment float64
	if rec.ADX != nil {
		adx = *rec.ADX
	}
	if rec.SentimentScore != nil {
		sentiment = *rec.SentimentScore
	}
	return ADXWeight*adx + SentimentWeight*sentiment
}

// Less orders records by descending score, then descending ADX (missing
// ADX ranks lowest), then ascending symbol, then ascending source.
func Less(a, b core.StockRecord) bool {
	sa, sb := Score(a), Score(b)
	if sa != sb {
		return sa > sb
	}
	if a.ADX == nil || b.ADX == nil {
		if (a.ADX == nil) != (b.ADX == nil) {
			return b.ADX == nil
		}
	} else if *a.ADX != *b.ADX {
		return *a.ADX > *b.ADX
	}
	if a.Symbol != b.Symbol {
		return a.Symbol < b.Symbol
	}
	return a.SourceID < b.SourceID
}

// Rank returns a ranked copy of records truncated to limit. A limit of
// zero or less keeps every record. The input slice is not modified.
func Rank(records []core.StockRecord, limit int) []core.StockRecord {
	ranked := make([]core.StockRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
