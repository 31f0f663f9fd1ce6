// Package grounding answers free-text questions about a snapshot. It infers
// filters from the question, selects a bounded candidate set, sends a
// compact text rendition to an Answerer and maps the answer back onto the
// records it mentions.
package grounding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/sheetpulse/internal/analytics"
	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/newthinker/sheetpulse/internal/filter"
	"go.uber.org/zap"
)

// Default caps
const (
	DefaultCandidateCap = 25
	DefaultDisplayCap   = 25
)

// Config bounds a Grounder
type Config struct {
	CandidateCap int
	DisplayCap   int
	Timeout      time.Duration
}

// Answer is the result of one question
type Answer struct {
	Answer          string              `json:"answer"`
	Records         []core.StockRecord  `json:"relevant_records"`
	Criteria        core.FilterCriteria `json:"criteria"`
	Keywords        []string            `json:"matched_keywords"`
	CandidateCount  int                 `json:"candidate_count"`
	SnapshotVersion uint64              `json:"snapshot_version"`
}

// Grounder answers questions over snapshots. It keeps no state between
// calls and is safe for concurrent use.
type Grounder struct {
	answerer Answerer
	cfg      Config
	logger   *zap.Logger
}

// New creates a Grounder
func New(answerer Answerer, cfg Config, logger *zap.Logger) *Grounder {
	if cfg.CandidateCap <= 0 {
		cfg.CandidateCap = DefaultCandidateCap
	}
	if cfg.DisplayCap <= 0 {
		cfg.DisplayCap = DefaultDisplayCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grounder{answerer: answerer, cfg: cfg, logger: logger}
}

// Ask answers question against snap. Answerer failures surface as
// ANSWER_UNAVAILABLE wrapping LLM_TIMEOUT or LLM_FAILED.
func (g *Grounder) Ask(ctx context.Context, snap *core.Snapshot, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, core.WrapError(core.ErrInvalidRequest, errors.New("message is required"))
	}

	criteria, keywords := Infer(question)
	candidates := Candidates(snap, criteria, len(keywords) > 0, g.cfg.CandidateCap)
	text := BuildContext(snap, criteria, candidates)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	reply, err := g.answerer.Answer(ctx, question, text)
	if err != nil {
		g.logger.Warn("answer unavailable",
			zap.Int("candidates", len(candidates)),
			zap.Error(err),
		)
		return nil, answerError(ctx, err)
	}

	g.logger.Debug("question answered",
		zap.Strings("keywords", keywords),
		zap.Int("candidates", len(candidates)),
	)

	if keywords == nil {
		keywords = []string{}
	}
	return &Answer{
		Answer:          reply,
		Records:         Extract(reply, snap, candidates, g.cfg.DisplayCap),
		Criteria:        criteria,
		Keywords:        keywords,
		CandidateCount:  len(candidates),
		SnapshotVersion: snapshotVersion(snap),
	}, nil
}

func answerError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.WrapError(core.ErrAnswerUnavailable, core.WrapError(core.ErrLLMTimeout, err))
	}
	return core.WrapError(core.ErrAnswerUnavailable, core.WrapError(core.ErrLLMFailed, err))
}

func snapshotVersion(snap *core.Snapshot) uint64 {
	if snap == nil {
		return 0
	}
	return snap.Version
}

// Candidates selects the records sent to the model. With keywords the
// filter output is used, otherwise the whole snapshot. Either way the
// result is ranked by composite score and capped at limit.
func Candidates(snap *core.Snapshot, criteria core.FilterCriteria, matched bool, limit int) []core.StockRecord {
	if snap == nil {
		return []core.StockRecord{}
	}
	pool := snap.Records
	if matched {
		pool = selectMatching(snap, criteria)
	}
	return analytics.Rank(pool, limit)
}

// selectMatching applies criteria to snap. A sentiment label also matches
// unlabeled records by the sign of their score, so sheets that only carry
// sentiment scores still answer bullish or bearish questions.
func selectMatching(snap *core.Snapshot, criteria core.FilterCriteria) []core.StockRecord {
	label := strings.TrimSpace(criteria.SentimentText)
	if label == "" {
		return filter.Apply(snap, criteria)
	}
	criteria.SentimentText = ""

	result := make([]core.StockRecord, 0)
	for _, rec := range filter.Apply(snap, criteria) {
		if sentimentMatches(rec, label) {
			result = append(result, rec)
		}
	}
	return result
}

func sentimentMatches(rec core.StockRecord, label string) bool {
	if rec.SentimentText != "" && rec.SentimentText != core.SentimentUnknown {
		return strings.EqualFold(string(rec.SentimentText), label)
	}
	if rec.SentimentScore == nil {
		return false
	}
	score := *rec.SentimentScore
	switch {
	case strings.EqualFold(label, string(core.SentimentBullish)):
		return score > 0
	case strings.EqualFold(label, string(core.SentimentBearish)):
		return score < 0
	case strings.EqualFold(label, string(core.SentimentNeutral)):
		return score == 0
	}
	return false
}

// scoreSign is the score predicate an unlabeled record must meet for label
func scoreSign(label string) string {
	switch {
	case strings.EqualFold(label, string(core.SentimentBullish)):
		return "> 0"
	case strings.EqualFold(label, string(core.SentimentBearish)):
		return "< 0"
	case strings.EqualFold(label, string(core.SentimentNeutral)):
		return "= 0"
	}
	return ""
}

// BuildContext renders the grounding text for a question
func BuildContext(snap *core.Snapshot, criteria core.FilterCriteria, candidates []core.StockRecord) string {
	var sb strings.Builder

	if snap.Len() == 0 {
		sb.WriteString("## Dataset:\nNo data is loaded. No records are available.\n")
		return sb.String()
	}

	summary := analytics.Summarize(snap)
	sb.WriteString("## Dataset:\n")
	sb.WriteString(fmt.Sprintf("- Records: %d from %d source(s)\n", summary.TotalStocks, snap.SourceCount))
	if !snap.SyncedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("- Synced at: %s\n", snap.SyncedAt.UTC().Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("- Trend: %s\n", distribution(snap.Records, func(r core.StockRecord) string {
		return string(r.Trend)
	})))
	sb.WriteString(fmt.Sprintf("- Volatility: %s\n", distribution(snap.Records, func(r core.StockRecord) string {
		return string(r.Volatility)
	})))
	if summary.HasSentimentData {
		sb.WriteString(fmt.Sprintf("- Average sentiment: %.2f\n", summary.AvgSentiment))
	} else {
		sb.WriteString("- Average sentiment: no data\n")
	}
	sb.WriteString("\n")

	if !criteria.IsEmpty() {
		sb.WriteString("## Filters inferred from the question:\n")
		sb.WriteString(describeCriteria(criteria))
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("## Records (%d, ranked by score):\n", len(candidates)))
	if len(candidates) == 0 {
		sb.WriteString("None match.\n")
	}
	for _, rec := range candidates {
		sb.WriteString(describeRecord(rec))
	}
	return sb.String()
}

// distribution renders "Uptrend 3, Downtrend 1" in first-seen order
func distribution(records []core.StockRecord, key func(core.StockRecord) string) string {
	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		k := key(rec)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	parts := make([]string, len(order))
	for i, k := range order {
		parts[i] = fmt.Sprintf("%s %d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func describeCriteria(c core.FilterCriteria) string {
	var sb strings.Builder
	if c.Trend != "" {
		sb.WriteString(fmt.Sprintf("- trend = %s\n", c.Trend))
	}
	if c.TrendStrength != "" {
		sb.WriteString(fmt.Sprintf("- trend_strength = %s\n", c.TrendStrength))
	}
	if c.Volatility != "" {
		sb.WriteString(fmt.Sprintf("- volatility = %s\n", c.Volatility))
	}
	if c.SentimentText != "" {
		if sign := scoreSign(c.SentimentText); sign != "" {
			sb.WriteString(fmt.Sprintf("- sentiment = %s (unlabeled: sentiment_score %s)\n", c.SentimentText, sign))
		} else {
			sb.WriteString(fmt.Sprintf("- sentiment = %s\n", c.SentimentText))
		}
	}
	if c.MinADX != nil {
		sb.WriteString(fmt.Sprintf("- adx >= %g\n", *c.MinADX))
	}
	if c.MinSentiment != nil {
		sb.WriteString(fmt.Sprintf("- sentiment_score >= %g\n", *c.MinSentiment))
	}
	if c.MaxSentiment != nil {
		sb.WriteString(fmt.Sprintf("- sentiment_score <= %g\n", *c.MaxSentiment))
	}
	return sb.String()
}

func describeRecord(rec core.StockRecord) string {
	line := fmt.Sprintf("- %s [%s]: price=%s trend=%s strength=%s volatility=%s adx=%s sentiment=%s (%s) score=%.2f",
		rec.Symbol, rec.SourceID, num(rec.Price), rec.Trend, rec.TrendStrength, rec.Volatility,
		num(rec.ADX), num(rec.SentimentScore), rec.SentimentText, analytics.Score(rec))
	if rec.Rationale != "" {
		line += " rationale=" + strings.Join(strings.Fields(rec.Rationale), " ")
	}
	return line + "\n"
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
