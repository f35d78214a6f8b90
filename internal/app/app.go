// Package app wires configuration and clients shared by the server, CLI and
// Lambda binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"webhook-chat/internal/config"
	"webhook-chat/internal/integrations/openai"
	"webhook-chat/internal/integrations/paramstore"
	"webhook-chat/internal/integrations/webhook"
	"webhook-chat/internal/repository"
	"webhook-chat/internal/suggest"
	"webhook-chat/internal/usecase"
)

type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Relay     *webhook.Client
	Suggester *suggest.Client
	// Diagnostics is nil unless DIAGNOSTICS_TABLE is set.
	Diagnostics *repository.Client
}

// NewLogger returns the JSON logger used by every binary.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Bootstrap resolves configuration and builds the outbound clients. AWS is
// only contacted when PARAM_PREFIX or DIAGNOSTICS_TABLE is set.
func Bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	if cfg.ParamPrefix != "" {
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		params, err := paramstore.New(awsssm.NewFromConfig(ac))
		if err != nil {
			return nil, fmt.Errorf("app: create parameter store client: %w", err)
		}
		if err := cfg.ApplyParams(ctx, params); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	relay, err := webhook.NewClient(cfg.WebhookURL, webhook.WithTimeout(cfg.WebhookTimeout))
	if err != nil {
		return nil, fmt.Errorf("app: create webhook client: %w", err)
	}

	suggestOpts := []suggest.Option{suggest.WithTimeout(cfg.SuggestTimeout), suggest.WithLogger(logger)}
	var suggester *suggest.Client
	if cfg.SuggestionsEnabled() {
		gen, err := openai.NewClient(cfg.SuggestAPIKey, cfg.SuggestModel,
			openai.WithBaseURL(cfg.SuggestBaseURL),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.SuggestTimeout}),
		)
		if err != nil {
			return nil, fmt.Errorf("app: create suggestion client: %w", err)
		}
		suggester = suggest.New(gen, suggestOpts...)
	} else {
		logger.Info("suggestion generation disabled", "reason", "SUGGEST_API_KEY not set")
		suggester = suggest.New(nil, suggestOpts...)
	}

	a := &App{Config: cfg, Logger: logger, Relay: relay, Suggester: suggester}
	if cfg.DiagnosticsTable != "" {
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		diag, err := repository.New(awsdynamodb.NewFromConfig(ac), cfg.DiagnosticsTable)
		if err != nil {
			return nil, fmt.Errorf("app: create diagnostics client: %w", err)
		}
		a.Diagnostics = diag
	}
	return a, nil
}

// UsecaseOptions returns the use case options implied by the configuration.
func (a *App) UsecaseOptions() []usecase.Option {
	opts := []usecase.Option{
		usecase.WithLogger(a.Logger),
		usecase.WithMaxQuestionLength(a.Config.MaxQuestionLength),
	}
	if a.Diagnostics != nil {
		opts = append(opts, usecase.WithFailureRecorder(a.Diagnostics))
	}
	return opts
}
