// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnv overrides the minimum log level, e.g. "warn"
const LevelEnv = "SHEETPULSE_LOG_LEVEL"

// New creates a zap logger. Production output is JSON with ISO8601
// timestamps; development output is colored console text.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]any{"service": "sheetpulse"}
	}

	if raw := os.Getenv(LevelEnv); raw != "" {
		level, err := zap.ParseAtomicLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", LevelEnv, err)
		}
		cfg.Level = level
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}
