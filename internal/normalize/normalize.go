// Package normalize converts loosely typed spreadsheet rows into canonical
// records. It is the only package that sees untyped sheet data.
package normalize

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/newthinker/sheetpulse/internal/core"
)

// Row is one raw spreadsheet row keyed by its header text
type Row map[string]any

// Result holds the outcome of normalizing a batch of rows
type Result struct {
	Records  []core.StockRecord
	Rejected int
}

// Normalize converts one raw row into a StockRecord. Bad cells never fail
// the row: numbers fall back to nil and enums to Unknown. The row is
// rejected with core.ErrRowRejected only when no symbol can be resolved.
func Normalize(row Row, sourceID string) (core.StockRecord, error) {
	rec := core.StockRecord{
		Trend:         core.TrendUnknown,
		TrendStrength: core.StrengthUnknown,
		Volatility:    core.VolatilityUnknown,
		SentimentText: core.SentimentUnknown,
		SourceID:      sourceID,
	}

	// An explicit score/label column wins over the ambiguous "sentiment" one.
	var ambiguous any
	var haveScore, haveText bool

	// Sorted headers keep duplicate aliases ("Symbol" and "Ticker") deterministic.
	for _, header := range slices.Sorted(maps.Keys(row)) {
		value := row[header]
		field, ok := ResolveField(header)
		if !ok {
			continue
		}
		switch field {
		case FieldSymbol:
			if rec.Symbol == "" {
				rec.Symbol = strings.ToUpper(toString(value))
			}
		case FieldName:
			setString(&rec.Name, toString(value))
		case FieldPrice:
			setFloat(&rec.Price, toFloat(value))
		case FieldTrend:
			rec.Trend = known(rec.Trend, ParseTrend(value), core.TrendUnknown)
		case FieldTrendStrength:
			rec.TrendStrength = known(rec.TrendStrength, ParseStrength(value), core.StrengthUnknown)
		case FieldVolatility:
			rec.Volatility = known(rec.Volatility, ParseVolatility(value), core.VolatilityUnknown)
		case FieldADX:
			setFloat(&rec.ADX, nonNegative(toFloat(value)))
		case FieldSentimentScore:
			if score := clampSentiment(toFloat(value)); score != nil {
				rec.SentimentScore = score
				haveScore = true
			}
		case FieldSentimentText:
			if label := ParseSentiment(value); label != core.SentimentUnknown {
				rec.SentimentText = label
				haveText = true
			}
		case FieldSentiment:
			if ambiguous == nil || !isNumeric(ambiguous) {
				ambiguous = value
			}
		case FieldRationale:
			setString(&rec.Rationale, toString(value))
		case FieldTimeframe:
			setString(&rec.Timeframe, toString(value))
		case FieldDate:
			setString(&rec.Date, toString(value))
		case FieldEMA50:
			setFloat(&rec.EMA50, toFloat(value))
		case FieldEMA200:
			setFloat(&rec.EMA200, toFloat(value))
		case FieldATR:
			setFloat(&rec.ATR, toFloat(value))
		case FieldATRPercent:
			setFloat(&rec.ATRPercent, toFloat(value))
		case FieldQualifiedFilter:
			setString(&rec.QualifiedFilter, toString(value))
		}
	}

	if ambiguous != nil {
		if isNumeric(ambiguous) {
			if !haveScore {
				rec.SentimentScore = clampSentiment(toFloat(ambiguous))
			}
		} else if !haveText {
			rec.SentimentText = ParseSentiment(ambiguous)
		}
	}

	if rec.Symbol == "" {
		return core.StockRecord{}, core.WrapError(core.ErrRowRejected,
			fmt.Errorf("source %s: empty symbol", sourceID))
	}
	return rec, nil
}

// NormalizeRows converts a batch of rows, dropping rejected ones while
// preserving the order of the accepted rows.
func NormalizeRows(rows []Row, sourceID string) Result {
	res := Result{Records: make([]core.StockRecord, 0, len(rows))}
	for _, row := range rows {
		rec, err := Normalize(row, sourceID)
		if err != nil {
			res.Rejected++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// NormalizeAlert converts one alerts worksheet row. Rows without a symbol
// are rejected the same way stock rows are.
func NormalizeAlert(row Row) (core.Alert, error) {
	var a core.Alert
	for _, header := range slices.Sorted(maps.Keys(row)) {
		value := row[header]
		switch alertAliases[HeaderKey(header)] {
		case "symbol":
			if a.Symbol == "" {
				a.Symbol = strings.ToUpper(toString(value))
			}
		case "exchange":
			setString(&a.Exchange, toString(value))
		case "indicator":
			setString(&a.Indicator, toString(value))
		case "price":
			setFloat(&a.Price, toFloat(value))
		case "volume":
			setFloat(&a.Volume, toFloat(value))
		case "timeframe":
			setString(&a.Timeframe, toString(value))
		case "alert_time":
			setString(&a.AlertTime, toString(value))
		case "status":
			setString(&a.Status, toString(value))
		}
	}
	if a.Symbol == "" {
		return core.Alert{}, core.WrapError(core.ErrRowRejected, fmt.Errorf("alert without symbol"))
	}
	return a, nil
}

// Duplicate aliases of one field are read in header order. A later cell only
// replaces an earlier one when it carries a usable value.

func setFloat(dst **float64, v *float64) {
	if v != nil {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func known[T comparable](current, next, unknown T) T {
	if next == unknown {
		return current
	}
	return next
}
