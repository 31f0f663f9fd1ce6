package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/newthinker/sheetpulse/internal/core"
)

// toString renders a scalar cell as trimmed text. Whole floats print
// without a fractional part so numeric tickers such as 700 survive.
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// toFloat coerces a scalar cell to a finite float. It returns nil for
// empty, unparseable, NaN and infinite values instead of failing.
func toFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case bool:
		return nil
	default:
		s := strings.ReplaceAll(toString(t), ",", "")
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// isNumeric reports whether a cell holds a usable number
func isNumeric(v any) bool {
	return toFloat(v) != nil
}

// clampSentiment bounds a score to [-1, 1]. Non-finite scores were
// already dropped by toFloat.
func clampSentiment(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := math.Max(-1, math.Min(1, *v))
	return &c
}

// nonNegative drops negative values to nil
func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

// ParseTrend maps free text to a Trend, defaulting to TrendUnknown.
func ParseTrend(v any) core.Trend {
	switch HeaderKey(toString(v)) {
	case "uptrend", "up", "upward", "rising", "bullish":
		return core.TrendUp
	case "downtrend", "down", "downward", "falling", "bearish":
		return core.TrendDown
	default:
		return core.TrendUnknown
	}
}

// ParseStrength maps free text to a Strength, defaulting to StrengthUnknown.
func ParseStrength(v any) core.Strength {
	switch HeaderKey(toString(v)) {
	case "strong", "verystrong":
		return core.StrengthStrong
	case "developing", "moderate", "building":
		return core.StrengthDeveloping
	case "weak", "veryweak":
		return core.StrengthWeak
	default:
		return core.StrengthUnknown
	}
}

// ParseVolatility maps free text to a Volatility, defaulting to VolatilityUnknown.
func ParseVolatility(v any) core.Volatility {
	switch HeaderKey(toString(v)) {
	case "high", "veryhigh":
		return core.VolatilityHigh
	case "moderate", "medium", "normal":
		return core.VolatilityModerate
	case "low", "verylow":
		return core.VolatilityLow
	default:
		return core.VolatilityUnknown
	}
}

// ParseSentiment maps free text to a Sentiment, defaulting to SentimentUnknown.
func ParseSentiment(v any) core.Sentiment {
	switch HeaderKey(toString(v)) {
	case "bullish", "positive":
		return core.SentimentBullish
	case "bearish", "negative":
		return core.SentimentBearish
	case "neutral", "mixed":
		return core.SentimentNeutral
	default:
		return core.SentimentUnknown
	}
}
