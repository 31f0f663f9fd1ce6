package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/sheetpulse/internal/api"
	"github.com/newthinker/sheetpulse/internal/app"
	"github.com/newthinker/sheetpulse/internal/logger"
	"github.com/newthinker/sheetpulse/internal/metrics"
	"github.com/newthinker/sheetpulse/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sheetpulse server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	application, err := buildApp(cfg, reg, log)
	if err != nil {
		return err
	}

	log.Info("starting sheetpulse server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("sources", sourceIDs(application)),
	)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	// Create API server
	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		JobTTL:      time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		MaxJobs:     cfg.Server.MaxJobs,
		MetricsPath: metricsPath,
	}, api.Dependencies{
		App:     application,
		Metrics: reg,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, application, log.Named("scheduler"))
	if err := sched.Register(cfg.Sync.Schedule); err != nil {
		return err
	}
	sched.Start()
	if cfg.Sync.RunOnStart {
		go sched.RunNow()
	}

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down sheetpulse server")
	cancel()
	sched.Stop()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

func sourceIDs(a *app.App) []string {
	sources := a.Sources()
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.ID
	}
	return ids
}
