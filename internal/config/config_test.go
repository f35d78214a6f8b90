package config

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeParams struct {
	values map[string]string
	err    error
	calls  []string
}

func (f *fakeParams) Lookup(_ context.Context, name string) (string, bool, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[name]
	return v, ok, nil
}

func (f *fakeParams) LookupToken(ctx context.Context, name string) (string, bool, error) {
	return f.Lookup(ctx, name)
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"WEBHOOK_URL": " https://hooks.example.com/webhook/1 "})
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "https://hooks.example.com/webhook/1", cfg.WebhookURL)
	require.Equal(t, 60*time.Second, cfg.WebhookTimeout)
	require.Equal(t, 10*time.Second, cfg.SuggestTimeout)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, 60, cfg.RateLimitPerMinute)
	require.Equal(t, 2000, cfg.MaxQuestionLength)
	require.Equal(t, "gemini-2.0-flash", cfg.SuggestModel)
	require.False(t, cfg.SuggestionsEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadFrom_InvalidDuration(t *testing.T) {
	_, err := LoadFrom(map[string]string{"WEBHOOK_TIMEOUT": "soon"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "config")
}

func TestValidate(t *testing.T) {
	require.Error(t, Config{}.Validate())
	require.Error(t, Config{WebhookURL: "https://x", RateLimitPerMinute: -1}.Validate())
}

func TestApplyParams_FillsBlanks(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"PARAM_PREFIX": "/webhook-chat/"})
	require.NoError(t, err)
	p := &fakeParams{values: map[string]string{
		"/webhook-chat/webhook_url":     "https://hooks.example.com/from-ssm",
		"/webhook-chat/suggest_api_key": "sk-ssm",
	}}

	require.NoError(t, cfg.ApplyParams(context.Background(), p))
	require.Equal(t, "https://hooks.example.com/from-ssm", cfg.WebhookURL)
	require.Equal(t, "sk-ssm", cfg.SuggestAPIKey)
	require.True(t, cfg.SuggestionsEnabled())
}

func TestApplyParams_EnvironmentWins(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PARAM_PREFIX":    "/webhook-chat",
		"WEBHOOK_URL":     "https://env",
		"SUGGEST_API_KEY": "sk-env",
	})
	require.NoError(t, err)
	p := &fakeParams{}

	require.NoError(t, cfg.ApplyParams(context.Background(), p))
	require.Empty(t, p.calls)
	require.Equal(t, "https://env", cfg.WebhookURL)
}

func TestApplyParams_NoPrefixIsNoop(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.ApplyParams(context.Background(), nil))
}

func TestApplyParams_Errors(t *testing.T) {
	cfg := Config{ParamPrefix: "/app"}
	require.Error(t, cfg.ApplyParams(context.Background(), nil))

	err := cfg.ApplyParams(context.Background(), &fakeParams{err: errors.New("AccessDenied")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "webhook url")
}

func TestSlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.SlogLevel())
	require.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.SlogLevel())
	require.Equal(t, slog.LevelInfo, Config{LogLevel: "loud"}.SlogLevel())
}
