package main

import (
	"context"
	"log/slog"
	"os"

	"webhook-chat/internal/app"
	"webhook-chat/internal/config"
)

func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// stdout carries command output; logs go to stderr
	logger := app.NewLogger(os.Stderr, cfg.SlogLevel())
	slog.SetDefault(logger)
	return app.Bootstrap(ctx, cfg, logger)
}
