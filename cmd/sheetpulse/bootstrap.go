package main

import (
	"fmt"

	"github.com/newthinker/sheetpulse/internal/app"
	"github.com/newthinker/sheetpulse/internal/config"
	"github.com/newthinker/sheetpulse/internal/grounding"
	"github.com/newthinker/sheetpulse/internal/llm"
	llmfactory "github.com/newthinker/sheetpulse/internal/llm/factory"
	"github.com/newthinker/sheetpulse/internal/metrics"
	sourcefactory "github.com/newthinker/sheetpulse/internal/source/factory"
	"go.uber.org/zap"
)

// loadConfig loads the config file when one is given, otherwise defaults
// plus SHEETPULSE_SHEET_IDS.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		cfg.ApplyEnv()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// buildApp wires sources and the optional LLM provider into an App.
// reg may be nil.
func buildApp(cfg *config.Config, reg *metrics.Registry, log *zap.Logger) (*app.App, error) {
	sources, err := sourcefactory.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating sources: %w", err)
	}
	if len(sources.IDs()) == 0 {
		log.Warn("no sources configured; set sources in config or " + config.SheetIDsEnv)
	}

	var answerer grounding.Answerer
	if cfg.LLM.Provider != "" {
		provider, err := llmfactory.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating llm provider: %w", err)
		}
		answerer = grounding.NewLLMAnswerer(provider,
			cfg.Grounding.MaxTokens,
			cfg.Grounding.Temperature,
			func(name string, usage llm.Usage) {
				reg.RecordTokens(name, usage.InputTokens, usage.OutputTokens)
			},
		)
		log.Info("llm provider configured", zap.String("provider", provider.Name()))
	} else {
		log.Warn("no llm provider configured, chat is disabled")
	}

	return app.New(app.OptionsFrom(cfg), sources, answerer, reg, log), nil
}
