package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"webhook-chat/internal/config"
)

func TestBootstrap_WithoutAWS(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"WEBHOOK_URL":         "https://n8n.example.com/webhook/abc",
		"WEBHOOK_TIMEOUT":     "5s",
		"MAX_QUESTION_LENGTH": "100",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	a, err := Bootstrap(context.Background(), cfg, NewLogger(&buf, slog.LevelInfo))
	require.NoError(t, err)
	require.NotNil(t, a.Relay)
	require.NotNil(t, a.Suggester)
	require.Nil(t, a.Diagnostics)
	require.Len(t, a.UsecaseOptions(), 2)
	require.Contains(t, buf.String(), "suggestion generation disabled")
	require.Equal(t, 5*time.Second, a.Config.WebhookTimeout)
}

func TestBootstrap_WithSuggestions(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"WEBHOOK_URL":     "https://n8n.example.com/webhook/abc",
		"SUGGEST_API_KEY": "key",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Bootstrap(context.Background(), cfg, NewLogger(&buf, slog.LevelInfo))
	require.NoError(t, err)
	require.NotContains(t, buf.String(), "suggestion generation disabled")
}

func TestBootstrap_RequiresWebhookURL(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)
	_, err = Bootstrap(context.Background(), cfg, NewLogger(&bytes.Buffer{}, slog.LevelInfo))
	require.Error(t, err)
	require.Contains(t, err.Error(), "WEBHOOK_URL")
}

func TestBootstrap_RejectsInvalidWebhookURL(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"WEBHOOK_URL": "not a url"})
	require.NoError(t, err)
	_, err = Bootstrap(context.Background(), cfg, NewLogger(&bytes.Buffer{}, slog.LevelInfo))
	require.Error(t, err)
}
