package core

import (
	"strings"
	"time"
)

// Trend is the directional trend reported by a signal sheet
type Trend string

const (
	TrendUp      Trend = "Uptrend"
	TrendDown    Trend = "Downtrend"
	TrendUnknown Trend = "Unknown"
)

// Strength describes how established a trend is
type Strength string

const (
	StrengthStrong     Strength = "Strong"
	StrengthDeveloping Strength = "Developing"
	StrengthWeak       Strength = "Weak"
	StrengthUnknown    Strength = "Unknown"
)

// Volatility is the bucketed volatility level of a symbol
type Volatility string

const (
	VolatilityHigh     Volatility = "High"
	VolatilityModerate Volatility = "Moderate"
	VolatilityLow      Volatility = "Low"
	VolatilityUnknown  Volatility = "Unknown"
)

// Sentiment is the textual sentiment label of a symbol
type Sentiment string

const (
	SentimentBullish Sentiment = "Bullish"
	SentimentBearish Sentiment = "Bearish"
	SentimentNeutral Sentiment = "Neutral"
	SentimentUnknown Sentiment = "Unknown"
)

// StockRecord is one canonical row of market signal data.
// Optional numeric fields are nil when the sheet cell was missing or unparseable.
type StockRecord struct {
	Symbol         string     `json:"symbol"`
	Name           string     `json:"name,omitempty"`
	Price          *float64   `json:"price"`
	Trend          Trend      `json:"trend"`
	TrendStrength  Strength   `json:"trend_strength"`
	Volatility     Volatility `json:"volatility"`
	ADX            *float64   `json:"adx"`
	SentimentScore *float64   `json:"sentiment_score"`
	SentimentText  Sentiment  `json:"sentiment_text"`
	Rationale      string     `json:"rationale,omitempty"`
	SourceID       string     `json:"source_id"`
	Timeframe      string     `json:"timeframe,omitempty"`
	Date           string     `json:"date,omitempty"`

	EMA50           *float64 `json:"ema50,omitempty"`
	EMA200          *float64 `json:"ema200,omitempty"`
	ATR             *float64 `json:"atr,omitempty"`
	ATRPercent      *float64 `json:"atr_percentage,omitempty"`
	QualifiedFilter string   `json:"qualified_filter,omitempty"`
}

// Snapshot is an immutable, fully merged view of every source's records.
// A Snapshot is never modified after it has been installed.
type Snapshot struct {
	Records     []StockRecord `json:"records"`
	SyncedAt    time.Time     `json:"synced_at"`
	SourceCount int           `json:"source_count"`
	Version     uint64        `json:"version"`
}

// Len returns the number of records in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// SyncStatus is the lifecycle state of a single source
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// SyncState tracks the sync lifecycle of one source.
type SyncState struct {
	SourceID     string     `json:"source_id"`
	Status       SyncStatus `json:"status"`
	RecordCount  int        `json:"record_count"`
	RowsRejected int        `json:"rows_rejected"`
	LastSyncAt   time.Time  `json:"last_sync_at"`
	LastError    string     `json:"last_error,omitempty"`
}

// SourceError records why one source failed during a sync pass
type SourceError struct {
	SourceID string `json:"source_id"`
	Error    string `json:"error"`
}

// SyncReport is the caller-facing result of a sync request.
// TotalRecords and LastSyncAt come from the installed snapshot, not the request time.
type SyncReport struct {
	Status       SyncStatus    `json:"status"`
	TotalRecords int           `json:"total_records"`
	LastSyncAt   time.Time     `json:"last_sync_at"`
	Sources      []SyncState   `json:"sources"`
	Errors       []SourceError `json:"errors,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// FilterCriteria holds optional constraints over a snapshot.
// Empty strings and nil bounds impose no constraint.
type FilterCriteria struct {
	Trend         string   `json:"trend,omitempty"`
	TrendStrength string   `json:"trend_strength,omitempty"`
	Volatility    string   `json:"volatility,omitempty"`
	SentimentText string   `json:"sentiment,omitempty"`
	MinSentiment  *float64 `json:"min_sentiment,omitempty"`
	MaxSentiment  *float64 `json:"max_sentiment,omitempty"`
	MinADX        *float64 `json:"min_adx,omitempty"`
}

// IsEmpty reports whether no constraint is set
func (c FilterCriteria) IsEmpty() bool {
	return strings.TrimSpace(c.Trend) == "" &&
		strings.TrimSpace(c.TrendStrength) == "" &&
		strings.TrimSpace(c.Volatility) == "" &&
		strings.TrimSpace(c.SentimentText) == "" &&
		c.MinSentiment == nil &&
		c.MaxSentiment == nil &&
		c.MinADX == nil
}

// Performer is one entry of the top performers ranking
type Performer struct {
	Symbol    string   `json:"symbol"`
	SourceID  string   `json:"source_id"`
	ADX       *float64 `json:"adx"`
	Sentiment *float64 `json:"sentiment"`
	Trend     Trend    `json:"trend"`
	Score     float64  `json:"score"`
}

// AnalyticsSummary is derived from a snapshot on demand.
type AnalyticsSummary struct {
	TotalStocks         int         `json:"total_stocks"`
	UptrendCount        int         `json:"uptrend_count"`
	DowntrendCount      int         `json:"downtrend_count"`
	StrongTrends        int         `json:"strong_trends"`
	HighVolatilityCount int         `json:"high_volatility_count"`
	AvgSentiment        float64     `json:"avg_sentiment"`
	HasSentimentData    bool        `json:"has_sentiment_data"`
	UptrendPct          float64     `json:"uptrend_pct"`
	DowntrendPct        float64     `json:"downtrend_pct"`
	StrongPct           float64     `json:"strong_pct"`
	HighVolatilityPct   float64     `json:"high_volatility_pct"`
	TopPerformers       []Performer `json:"top_performers"`
	SyncedAt            time.Time   `json:"synced_at"`
}

// Alert is a TradingView alert row from an alerts worksheet
type Alert struct {
	Symbol    string   `json:"symbol"`
	Exchange  string   `json:"exchange,omitempty"`
	Indicator string   `json:"indicator"`
	Price     *float64 `json:"price"`
	Volume    *float64 `json:"volume"`
	Timeframe string   `json:"timeframe,omitempty"`
	AlertTime string   `json:"alert_time"`
	Status    string   `json:"status,omitempty"`
}
