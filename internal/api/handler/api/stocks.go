// internal/api/handler/api/stocks.go
package api

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/newthinker/sheetpulse/internal/api/response"
	"github.com/newthinker/sheetpulse/internal/core"
)

// StocksApp defines the interface needed from app.App.
type StocksApp interface {
	Stocks(criteria core.FilterCriteria) []core.StockRecord
	Analytics() core.AnalyticsSummary
	Insights() []string
}

// StocksHandler serves the structured read paths over the snapshot.
type StocksHandler struct {
	app StocksApp
}

// NewStocksHandler creates a new stocks handler.
func NewStocksHandler(app StocksApp) *StocksHandler {
	return &StocksHandler{app: app}
}

// List returns the records matching the query's filter criteria.
func (h *StocksHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}
	response.List(w, h.app.Stocks(criteria))
}

// Analytics returns the summary of the current snapshot.
func (h *StocksHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.app.Analytics())
}

// Insights returns short observations about the current snapshot.
func (h *StocksHandler) Insights(w http.ResponseWriter, r *http.Request) {
	response.List(w, h.app.Insights())
}

// ParseCriteria reads filter criteria from query parameters. Numeric
// bounds must be finite numbers.
func ParseCriteria(q url.Values) (core.FilterCriteria, error) {
	criteria := core.FilterCriteria{
		Trend:         q.Get("trend"),
		TrendStrength: q.Get("trend_strength"),
		Volatility:    q.Get("volatility"),
		SentimentText: q.Get("sentiment"),
	}

	bounds := []struct {
		name string
		dst  **float64
	}{
		{"min_sentiment", &criteria.MinSentiment},
		{"max_sentiment", &criteria.MaxSentiment},
		{"min_adx", &criteria.MinADX},
	}
	for _, b := range bounds {
		raw := q.Get(b.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.FilterCriteria{}, core.WrapError(core.ErrInvalidRequest,
				fmt.Errorf("%s: %q is not a number", b.name, raw))
		}
		*b.dst = &v
	}

	return criteria, nil
}
