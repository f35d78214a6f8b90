// Package config reads runtime settings from the environment, an optional
// .env file and, when PARAM_PREFIX is set, AWS SSM Parameter Store.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	WebhookURL         string        `env:"WEBHOOK_URL"`
	WebhookTimeout     time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"60s"`
	SuggestAPIKey      string        `env:"SUGGEST_API_KEY"`
	SuggestBaseURL     string        `env:"SUGGEST_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai"`
	SuggestModel       string        `env:"SUGGEST_MODEL" envDefault:"gemini-2.0-flash"`
	SuggestTimeout     time.Duration `env:"SUGGEST_TIMEOUT" envDefault:"10s"`
	AllowedOrigin      string        `env:"ALLOWED_ORIGIN" envDefault:"*"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	MaxQuestionLength  int           `env:"MAX_QUESTION_LENGTH" envDefault:"2000"`
	DiagnosticsTable   string        `env:"DIAGNOSTICS_TABLE"`
	ParamPrefix        string        `env:"PARAM_PREFIX"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
}

// ParamLookup reads optional parameters. *paramstore.Client satisfies it.
type ParamLookup interface {
	Lookup(ctx context.Context, name string) (string, bool, error)
	LookupToken(ctx context.Context, name string) (string, bool, error)
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// LoadFrom parses settings from vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.SuggestAPIKey = strings.TrimSpace(c.SuggestAPIKey)
	c.ParamPrefix = strings.TrimRight(strings.TrimSpace(c.ParamPrefix), "/")
	c.DiagnosticsTable = strings.TrimSpace(c.DiagnosticsTable)
}

// ApplyParams fills settings left empty by the environment from the parameter
// store under ParamPrefix: <prefix>/webhook_url and <prefix>/suggest_api_key.
func (c *Config) ApplyParams(ctx context.Context, p ParamLookup) error {
	if c.ParamPrefix == "" {
		return nil
	}
	if p == nil {
		return errors.New("config: parameter store must not be nil when PARAM_PREFIX is set")
	}

	if c.WebhookURL == "" {
		v, found, err := p.Lookup(ctx, c.ParamPrefix+"/webhook_url")
		if err != nil {
			return fmt.Errorf("config: load webhook url: %w", err)
		}
		if found {
			c.WebhookURL = strings.TrimSpace(v)
		}
	}
	if c.SuggestAPIKey == "" {
		v, found, err := p.LookupToken(ctx, c.ParamPrefix+"/suggest_api_key")
		if err != nil {
			return fmt.Errorf("config: load suggestion api key: %w", err)
		}
		if found {
			c.SuggestAPIKey = v
		}
	}
	return nil
}

// Validate reports settings the binaries cannot start without.
func (c Config) Validate() error {
	if c.WebhookURL == "" {
		return errors.New("config: WEBHOOK_URL is required")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("config: RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// SuggestionsEnabled reports whether a generative provider is configured.
func (c Config) SuggestionsEnabled() bool {
	return c.SuggestAPIKey != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
