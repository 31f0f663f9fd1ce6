// Package analytics computes summary statistics and rankings over a snapshot.
package analytics

import (
	"fmt"
	"math"

	"github.com/newthinker/sheetpulse/internal/core"
)

// Summarize computes the analytics summary of a snapshot. An empty snapshot
// yields zero counts, zero percentages and no top performers.
func Summarize(snap *core.Snapshot) core.AnalyticsSummary {
	summary := core.AnalyticsSummary{TopPerformers: []core.Performer{}}
	if snap == nil {
		return summary
	}
	summary.SyncedAt = snap.SyncedAt
	summary.TotalStocks = len(snap.Records)
	if summary.TotalStocks == 0 {
		return summary
	}

	var sentimentSum float64
	var sentimentCount int

	for _, rec := range snap.Records {
		switch rec.Trend {
		case core.TrendUp:
			summary.UptrendCount++
		case core.TrendDown:
			summary.DowntrendCount++
		}
		if rec.TrendStrength == core.StrengthStrong {
			summary.StrongTrends++
		}
		if rec.Volatility == core.VolatilityHigh {
			summary.HighVolatilityCount++
		}
		if rec.SentimentScore != nil {
			sentimentSum += *rec.SentimentScore
			sentimentCount++
		}
	}

	if sentimentCount > 0 {
		summary.HasSentimentData = true
		summary.AvgSentiment = round2(sentimentSum / float64(sentimentCount))
	}

	summary.UptrendPct = share(summary.UptrendCount, summary.TotalStocks)
	summary.DowntrendPct = share(summary.DowntrendCount, summary.TotalStocks)
	summary.StrongPct = share(summary.StrongTrends, summary.TotalStocks)
	summary.HighVolatilityPct = share(summary.HighVolatilityCount, summary.TotalStocks)

	for _, rec := range Rank(snap.Records, TopN) {
		summary.TopPerformers = append(summary.TopPerformers, core.Performer{
			Symbol:    rec.Symbol,
			SourceID:  rec.SourceID,
			ADX:       rec.ADX,
			Sentiment: rec.SentimentScore,
			Trend:     rec.Trend,
			Score:     round2(Score(rec)),
		})
	}

	return summary
}

// Insights renders short human-readable observations from a summary
func Insights(summary core.AnalyticsSummary) []string {
	if summary.TotalStocks == 0 {
		return []string{"No data available"}
	}

	insights := []string{
		fmt.Sprintf("%.0f%% of stocks are in uptrend", summary.UptrendPct*100),
		fmt.Sprintf("%.0f%% show strong trend strength", summary.StrongPct*100),
	}
	if summary.HasSentimentData {
		switch {
		case summary.AvgSentiment > 0:
			insights = append(insights, fmt.Sprintf("Average sentiment is positive (%.2f)", summary.AvgSentiment))
		case summary.AvgSentiment < 0:
			insights = append(insights, fmt.Sprintf("Average sentiment is negative (%.2f)", summary.AvgSentiment))
		default:
			insights = append(insights, "Average sentiment is neutral (0.00)")
		}
	}
	if len(summary.TopPerformers) > 0 {
		insights = append(insights, fmt.Sprintf("Top performer is %s (score %.2f)",
			summary.TopPerformers[0].Symbol, summary.TopPerformers[0].Score))
	}
	return insights
}

// share returns count/total, defined as 0 when total is 0
func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
