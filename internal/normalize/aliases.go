package normalize

import "strings"

// Field is a canonical StockRecord column
type Field string

const (
	FieldSymbol          Field = "symbol"
	FieldName            Field = "name"
	FieldPrice           Field = "price"
	FieldTrend           Field = "trend"
	FieldTrendStrength   Field = "trend_strength"
	FieldVolatility      Field = "volatility"
	FieldADX             Field = "adx"
	FieldSentimentScore  Field = "sentiment_score"
	FieldSentimentText   Field = "sentiment_text"
	FieldSentiment       Field = "sentiment" // resolved by value: numeric -> score, text -> label
	FieldRationale       Field = "rationale"
	FieldTimeframe       Field = "timeframe"
	FieldDate            Field = "date"
	FieldEMA50           Field = "ema50"
	FieldEMA200          Field = "ema200"
	FieldATR             Field = "atr"
	FieldATRPercent      Field = "atr_percentage"
	FieldQualifiedFilter Field = "qualified_filter"
)

// stockAliases maps squashed header variants to canonical fields.
// Keys must already be in HeaderKey form.
var stockAliases = map[string]Field{
	"symbol":       FieldSymbol,
	"ticker":       FieldSymbol,
	"tickersymbol": FieldSymbol,
	"stocksymbol":  FieldSymbol,

	"stock":     FieldName,
	"name":      FieldName,
	"stockname": FieldName,
	"company":   FieldName,

	"price":        FieldPrice,
	"close":        FieldPrice,
	"lastprice":    FieldPrice,
	"currentprice": FieldPrice,

	"trend":          FieldTrend,
	"trenddirection": FieldTrend,
	"direction":      FieldTrend,

	"trendstrength": FieldTrendStrength,
	"strength":      FieldTrendStrength,

	"volatility":      FieldVolatility,
	"volatilitylevel": FieldVolatility,
	"vol":             FieldVolatility,

	"adx":      FieldADX,
	"adxvalue": FieldADX,
	"adx14":    FieldADX,

	"sentimentscore": FieldSentimentScore,
	"sentimentvalue": FieldSentimentScore,

	"sentimenttext":  FieldSentimentText,
	"sentimentlabel": FieldSentimentText,

	"sentiment": FieldSentiment,

	"rationale": FieldRationale,
	"rational":  FieldRationale,
	"reason":    FieldRationale,
	"reasoning": FieldRationale,
	"notes":     FieldRationale,

	"timeframe": FieldTimeframe,
	"interval":  FieldTimeframe,
	"tf":        FieldTimeframe,

	"date":     FieldDate,
	"asof":     FieldDate,
	"asofdate": FieldDate,

	"ema50":  FieldEMA50,
	"ema200": FieldEMA200,

	"atr":           FieldATR,
	"atrpercentage": FieldATRPercent,
	"atrpercent":    FieldATRPercent,
	"atrpct":        FieldATRPercent,

	"qualifiedfilter": FieldQualifiedFilter,
	"qualified":       FieldQualifiedFilter,
}

// alertAliases maps alert worksheet headers to Alert fields.
var alertAliases = map[string]string{
	"symbol":    "symbol",
	"ticker":    "symbol",
	"exchange":  "exchange",
	"indicator": "indicator",
	"price":     "price",
	"volume":    "volume",
	"volumn":    "volume",
	"timeframe": "timeframe",
	"alerttime": "alert_time",
	"time":      "alert_time",
	"status":    "status",
}

// HeaderKey folds a raw header into its lookup form: lowercased, with
// whitespace, '_' and '-' removed. "ADX_Value", " adx value " and
// "adxValue" all fold to "adxvalue".
func HeaderKey(header string) string {
	var b strings.Builder
	b.Grow(len(header))
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		switch r {
		case ' ', '\t', '\n', '\r', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResolveField returns the canonical field for a raw header.
func ResolveField(header string) (Field, bool) {
	f, ok := stockAliases[HeaderKey(header)]
	return f, ok
}
