package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webhook-chat/internal/normalize"
)

const (
	// KindNetwork classifies transport failures such as DNS errors, refused
	// connections and timeouts.
	KindNetwork normalize.Kind = "NETWORK_ERROR"
	// KindBodyTooLarge is returned when the reply exceeds the body limit.
	KindBodyTooLarge normalize.Kind = "BODY_TOO_LARGE"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 1 << 20
	networkDetail  = "Network error: the webhook could not be reached."
	tooLargeDetail = "The server returned a response larger than 1 MiB."
)

// questionRequest is the body posted for every user message.
type questionRequest struct {
	Question string `json:"question"`
}

// Error is returned by SendMessage for every failed exchange. Detail is for
// logs only; callers show a fixed message to the user instead.
type Error struct {
	Kind       normalize.Kind
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil || e.Kind != KindNetwork {
		return fmt.Sprintf("webhook: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("webhook: %s: %s: %v", e.Kind, e.Detail, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Client relays user questions to an automation webhook.
type Client struct {
	url        string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds a whole exchange. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a Client posting to endpoint, which must be an absolute
// http or https URL.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("webhook: endpoint URL must not be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("webhook: parse endpoint URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("webhook: endpoint URL %q must be absolute http(s)", endpoint)
	}
	c := &Client{
		url:        endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendMessage posts one question and returns the normalized reply. It makes a
// single attempt.
func (c *Client) SendMessage(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(questionRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("webhook: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Detail: networkDetail, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	// The body is read as text whatever its content type; an unreadable body
	// counts as empty.
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes+1))
	if err != nil {
		raw = nil
	}
	if len(raw) > maxBodyBytes {
		return "", &Error{Kind: KindBodyTooLarge, StatusCode: res.StatusCode, Detail: tooLargeDetail}
	}

	statusOK := res.StatusCode >= 200 && res.StatusCode < 300
	reply, err := normalize.Reply(statusOK, res.StatusCode, string(raw))
	if err != nil {
		var normErr *normalize.Error
		if errors.As(err, &normErr) {
			return "", &Error{Kind: normErr.Kind, StatusCode: normErr.StatusCode, Detail: normErr.Detail, Err: normErr}
		}
		return "", fmt.Errorf("webhook: normalize reply: %w", err)
	}
	return reply, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}
