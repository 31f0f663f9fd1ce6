package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/newthinker/sheetpulse/internal/app"
	"github.com/newthinker/sheetpulse/internal/logger"
	"github.com/spf13/cobra"
)

var syncSources string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and print the report",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSources, "source", "", "comma-separated source ids (default all)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
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

	report, syncErr := application.TriggerSync(context.Background(), app.ParseSourceList(syncSources)...)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	return syncErr
}
