package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// SheetIDsEnv lists extra Google Sheets ids, comma-separated
const SheetIDsEnv = "SHEETPULSE_SHEET_IDS"

// Source types
const (
	SourceGSheet = "gsheet"
	SourceFile   = "file"
	SourceS3     = "s3"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	S3        S3Config        `mapstructure:"s3"`
	Sync      SyncConfig      `mapstructure:"sync"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Grounding GroundingConfig `mapstructure:"grounding"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// SourceConfig describes one spreadsheet source.
//
// gsheet sources read SheetID through the xlsx export. file sources read
// Path relative to Dir; s3 sources read Path from the shared bucket. A Path
// ending in "/" reads every workbook under that prefix.
type SourceConfig struct {
	ID              string `mapstructure:"id"`
	Type            string `mapstructure:"type"`
	SheetID         string `mapstructure:"sheet_id"`
	Worksheet       string `mapstructure:"worksheet"`
	SheetIndex      int    `mapstructure:"sheet_index"`
	Dir             string `mapstructure:"dir"`
	Path            string `mapstructure:"path"`
	BaseURL         string `mapstructure:"base_url"`
	AccessToken     string `mapstructure:"access_token"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// SyncConfig controls sync passes. An empty Schedule disables the cron job.
type SyncConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	Schedule       string        `mapstructure:"schedule"`
	RunOnStart     bool          `mapstructure:"run_on_start"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Claude   ClaudeConfig  `mapstructure:"claude"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Ollama   OllamaConfig  `mapstructure:"ollama"`
	Gemini   GeminiConfig  `mapstructure:"gemini"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// GroundingConfig bounds what is sent to and returned from the model.
type GroundingConfig struct {
	CandidateCap int     `mapstructure:"candidate_cap"`
	DisplayCap   int     `mapstructure:"display_cap"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature"`
}

// AlertsConfig names the worksheet read by the alerts endpoint.
type AlertsConfig struct {
	Worksheet string `mapstructure:"worksheet"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		if val, ok := v.Get(key).(string); ok && isEnvRef(val) {
			v.Set(key, expandEnv(val))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Keys inside the sources list are not visible to AllKeys
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		s.SheetID = expandEnv(s.SheetID)
		s.AccessToken = expandEnv(s.AccessToken)
		s.CredentialsFile = expandEnv(s.CredentialsFile)
		s.Path = expandEnv(s.Path)
		s.Dir = expandEnv(s.Dir)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

func isEnvRef(val string) bool {
	return strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}")
}

func expandEnv(val string) string {
	if !isEnvRef(val) {
		return val
	}
	return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}"))
}

// ApplyEnv appends a gsheet source for every id in SHEETPULSE_SHEET_IDS
// that is not already configured.
func (c *Config) ApplyEnv() {
	raw := os.Getenv(SheetIDsEnv)
	if raw == "" {
		return
	}

	known := make(map[string]bool)
	for _, s := range c.Sources {
		known[s.SourceID()] = true
		if s.SheetID != "" {
			known[s.SheetID] = true
		}
	}

	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" || known[id] {
			continue
		}
		known[id] = true
		c.Sources = append(c.Sources, SourceConfig{
			ID:      id,
			Type:    SourceGSheet,
			SheetID: id,
		})
	}
}

// SourceID returns the configured id, defaulting to the sheet id for
// gsheet sources.
func (s SourceConfig) SourceID() string {
	if s.ID == "" && s.Type == SourceGSheet {
		return s.SheetID
	}
	return s.ID
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Mode:        "release",
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Sync: SyncConfig{
			Timeout:        60 * time.Second,
			RunOnStart:     true,
			MaxConcurrency: 4,
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
		},
		Grounding: GroundingConfig{
			CandidateCap: 25,
			DisplayCap:   25,
			MaxTokens:    1024,
			Temperature:  0.2,
		},
		Alerts: AlertsConfig{
			Worksheet: "TradingView_Alerts",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if err := c.validateSources(); err != nil {
		return err
	}

	if c.Sync.Timeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sync timeout must be positive, got %s", c.Sync.Timeout))
	}
	if c.Sync.MaxConcurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sync max_concurrency must be at least 1, got %d", c.Sync.MaxConcurrency))
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("sync schedule %q: %w", c.Sync.Schedule, err))
		}
	}

	if c.Grounding.CandidateCap < 1 || c.Grounding.DisplayCap < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("grounding caps must be at least 1, got %d/%d",
				c.Grounding.CandidateCap, c.Grounding.DisplayCap))
	}
	if c.Grounding.Temperature < 0 || c.Grounding.Temperature > 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("temperature must be between 0 and 2, got %f", c.Grounding.Temperature))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		case "gemini":
			if c.LLM.Gemini.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("gemini api_key required when provider is gemini"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	return nil
}

func (c *Config) validateSources() error {
	seen := make(map[string]bool)
	for i, s := range c.Sources {
		id := s.SourceID()
		if id == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("sources[%d]: id required", i))
		}
		if seen[id] {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("sources[%d]: duplicate id %q", i, id))
		}
		seen[id] = true

		if s.SheetIndex < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("source %s: sheet_index cannot be negative", id))
		}

		switch s.Type {
		case SourceGSheet:
			if s.SheetID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("source %s: sheet_id required for gsheet", id))
			}
		case SourceFile:
			if s.Dir == "" || s.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("source %s: dir and path required for file", id))
			}
		case SourceS3:
			if s.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("source %s: path required for s3", id))
			}
			if c.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("source %s: s3.bucket required", id))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("source %s: unknown type %q", id, s.Type))
		}
	}
	return nil
}
