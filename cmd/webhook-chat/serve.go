package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"webhook-chat/internal/server"
	"webhook-chat/internal/session"
	"webhook-chat/internal/usecase"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat web server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	cfg := a.Config

	store := session.NewStore(cfg.SessionTTL)
	go store.Run(ctx, janitorInterval, a.Logger)

	chat, err := usecase.NewChatService(a.Relay, a.Suggester, store, a.UsecaseOptions()...)
	if err != nil {
		return err
	}
	srv, err := server.New(chat,
		server.WithLogger(a.Logger),
		server.WithAllowedOrigin(cfg.AllowedOrigin),
		server.WithRateLimit(cfg.RateLimitPerMinute),
		server.WithSessionTTL(cfg.SessionTTL),
	)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// a turn may wait on the webhook for the full webhook timeout
		WriteTimeout: cfg.WebhookTimeout + 15*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "addr", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	chat.Wait()
	return nil
}
