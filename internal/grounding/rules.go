package grounding

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/newthinker/sheetpulse/internal/core"
)

// criteria fields a rule can set
const (
	fieldTrend        = "trend"
	fieldStrength     = "trend_strength"
	fieldVolatility   = "volatility"
	fieldSentiment    = "sentiment"
	fieldMinADX       = "min_adx"
	fieldMinSentiment = "min_sentiment"
	fieldMaxSentiment = "max_sentiment"
)

// rule maps a question pattern to one criteria field. Enum rules carry a
// fixed value; numeric rules read the first capture group.
type rule struct {
	field   string
	value   string
	pattern *regexp.Regexp
}

const number = `(-?\d+(?:\.\d+)?)`

var rules = []rule{
	{fieldTrend, string(core.TrendUp), regexp.MustCompile(`\b(up-?trends?|up-?trending|rising|climbing)\b`)},
	{fieldTrend, string(core.TrendDown), regexp.MustCompile(`\b(down-?trends?|down-?trending|falling|declining)\b`)},

	{fieldStrength, string(core.StrengthStrong), regexp.MustCompile(`\bstrong(est)?\b`)},
	{fieldStrength, string(core.StrengthDeveloping), regexp.MustCompile(`\bdeveloping\b`)},
	{fieldStrength, string(core.StrengthWeak), regexp.MustCompile(`\bweak(est)?\b`)},

	{fieldVolatility, string(core.VolatilityHigh), regexp.MustCompile(`\b(high[ -]volatility|(most|highly|very) volatile)\b`)},
	{fieldVolatility, string(core.VolatilityModerate), regexp.MustCompile(`\b(moderate|medium)[ -]volatility\b`)},
	{fieldVolatility, string(core.VolatilityLow), regexp.MustCompile(`\b(low[ -]volatility|least volatile)\b`)},

	{fieldSentiment, string(core.SentimentBullish), regexp.MustCompile(`\b(bullish|positive sentiment)\b`)},
	{fieldSentiment, string(core.SentimentBearish), regexp.MustCompile(`\b(bearish|negative sentiment)\b`)},
	{fieldSentiment, string(core.SentimentNeutral), regexp.MustCompile(`\bneutral\b`)},

	{fieldMinADX, "", regexp.MustCompile(`\badx\s*(?:of\s*)?(?:above|over|greater than|more than|at least|>=|>)\s*` + number)},
	{fieldMinSentiment, "", regexp.MustCompile(`\bsentiment(?: score)?\s*(?:above|over|greater than|more than|at least|>=|>)\s*` + number)},
	{fieldMaxSentiment, "", regexp.MustCompile(`\bsentiment(?: score)?\s*(?:below|under|less than|at most|<=|<)\s*` + number)},
}

// Infer derives filter criteria from keywords in a question. Numeric
// thresholds are inclusive. When rules disagree on a field the field is
// left unset. Matched holds the keyword text of every rule that fired.
func Infer(question string) (criteria core.FilterCriteria, matched []string) {
	q := strings.ToLower(question)

	values := make(map[string]string)
	ambiguous := make(map[string]bool)
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		matched = append(matched, m[0])

		value := r.value
		if value == "" {
			value = m[1]
		}
		if prev, ok := values[r.field]; ok && prev != value {
			ambiguous[r.field] = true
		}
		values[r.field] = value
	}

	for field, value := range values {
		if ambiguous[field] {
			continue
		}
		switch field {
		case fieldTrend:
			criteria.Trend = value
		case fieldStrength:
			criteria.TrendStrength = value
		case fieldVolatility:
			criteria.Volatility = value
		case fieldSentiment:
			criteria.SentimentText = value
		case fieldMinADX:
			criteria.MinADX = parseBound(value)
		case fieldMinSentiment:
			criteria.MinSentiment = parseBound(value)
		case fieldMaxSentiment:
			criteria.MaxSentiment = parseBound(value)
		}
	}
	return criteria, matched
}

func parseBound(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
