package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"webhook-chat/handler"
	"webhook-chat/internal/app"
	"webhook-chat/internal/config"
	"webhook-chat/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := app.NewLogger(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(logger)

	// ---- Clients ----
	a, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build clients", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	askService, err := usecase.NewAskService(a.Relay, a.Suggester, a.UsecaseOptions()...)
	if err != nil {
		logger.Error("failed to create ask service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(askService)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
