package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/sheetpulse/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Sync once, then answer a question about the data",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	application, err := buildApp(cfg, nil, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := application.TriggerSync(ctx); err != nil {
		// Answer from whatever is loaded; an empty snapshot is still valid
		log.Warn("sync failed", zap.Error(err))
	}

	answer, err := application.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Println(answer.Answer)
	if len(answer.Records) > 0 {
		fmt.Println()
		fmt.Println("Relevant records:")
		for _, r := range answer.Records {
			fmt.Printf("  %-10s %-10s trend=%s adx=%s sentiment=%s\n",
				r.Symbol, r.SourceID, r.Trend, formatNum(r.ADX), formatNum(r.SentimentScore))
		}
	}
	return nil
}

func formatNum(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
