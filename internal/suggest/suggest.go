// Package suggest proposes short follow-up prompts from recent conversation
// history. It never fails: any upstream problem yields no suggestions.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"webhook-chat/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Generator completes a free-form prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// statusCoder is implemented by generator errors that carry an upstream HTTP
// status.
type statusCoder interface {
	HTTPStatusCode() int
}

// Client produces follow-up suggestions.
type Client struct {
	gen     Generator
	prompts Prompts
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

// WithPrompts replaces the embedded prompts. Only values returned by
// LoadPrompts are accepted; anything else is ignored.
func WithPrompts(p Prompts) Option {
	return func(c *Client) {
		if p.tmpl != nil {
			c.prompts = p
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client. A nil Generator disables generated suggestions; the
// fixed greeting and fallback sets remain available.
func New(gen Generator, opts ...Option) *Client {
	c := &Client{
		gen:     gen,
		prompts: DefaultPrompts(),
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Greetings returns the suggestions offered for an empty conversation.
func (c *Client) Greetings() []string {
	return append([]string(nil), c.prompts.Greetings...)
}

// Fallback returns the suggestions installed after a failed turn.
func (c *Client) Fallback() []string {
	return append([]string(nil), c.prompts.Fallback...)
}

// GetSuggestions returns at most MaxSuggestions follow-ups for history.
func (c *Client) GetSuggestions(ctx context.Context, history []domain.Message) []string {
	if len(history) == 0 {
		return c.Greetings()
	}
	if c.gen == nil {
		return []string{}
	}

	prompt, err := c.prompts.render(contextLines(history, c.prompts.HistoryWindow))
	if err != nil {
		c.logger.WarnContext(ctx, "suggestion prompt failed", "err", err)
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.gen.Complete(ctx, prompt)
	if err != nil {
		attrs := []any{"err", err}
		var sc statusCoder
		if errors.As(err, &sc) {
			attrs = append(attrs, "status", sc.HTTPStatusCode())
		}
		c.logger.WarnContext(ctx, "suggestion request failed", attrs...)
		return []string{}
	}

	out, err := parseSuggestions(raw)
	if err != nil {
		c.logger.WarnContext(ctx, "suggestion response malformed", "err", err)
		return []string{}
	}
	if len(out) > c.prompts.MaxSuggestions {
		out = out[:c.prompts.MaxSuggestions]
	}
	return out
}

func contextLines(history []domain.Message, window int) string {
	if len(history) > window {
		history = history[len(history)-window:]
	}
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.ContextLine()
	}
	return strings.Join(lines, "\n")
}

// parseSuggestions decodes a JSON array of strings, tolerating prose or code
// fences around it. Non-string and blank entries are dropped.
func parseSuggestions(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("suggest: empty response")
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		first := strings.Index(raw, "[")
		last := strings.LastIndex(raw, "]")
		if first < 0 || last <= first {
			return nil, fmt.Errorf("suggest: decode suggestions: %w", err)
		}
		if err2 := json.Unmarshal([]byte(raw[first:last+1]), &items); err2 != nil {
			return nil, fmt.Errorf("suggest: decode suggestions: %w", err2)
		}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
