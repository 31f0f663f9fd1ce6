package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "sheetpulse",
	Short: "sheetpulse - market signal spreadsheets, queryable",
	Long: `sheetpulse syncs market-signal rows from Google Sheets, local workbooks
and S3 into one in-memory snapshot, and serves filters, analytics and
LLM-grounded answers over it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
