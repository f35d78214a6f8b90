package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"webhook-chat/internal/normalize"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL+"/webhook/abc", WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func expectWebhookError(t *testing.T, err error, kind normalize.Kind) *Error {
	t.Helper()
	var whErr *Error
	require.ErrorAs(t, err, &whErr)
	require.Equal(t, kind, whErr.Kind)
	return whErr
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")

	_, err = NewClient("/relative/path")
	require.Error(t, err)

	_, err = NewClient("ftp://example.com/hook")
	require.Error(t, err)

	c, err := NewClient("https://example.com/webhook/1", WithTimeout(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestClient_SendMessage_PostsQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/webhook/abc", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"question": "What is n8n?"}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"output":"  A workflow tool. "}]`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv).SendMessage(context.Background(), "What is n8n?")
	require.NoError(t, err)
	require.Equal(t, "A workflow tool.", reply)
}

func TestClient_SendMessage_PlainTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain text reply\n"))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv).SendMessage(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "plain text reply", reply)
}

func TestClient_SendMessage_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendMessage(context.Background(), "hi")
	expectWebhookError(t, err, normalize.KindEmptyResponse)
}

func TestClient_SendMessage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendMessage(context.Background(), "hi")
	whErr := expectWebhookError(t, err, normalize.KindServerError)
	require.Equal(t, "boom", whErr.Detail)
	require.Equal(t, http.StatusInternalServerError, whErr.StatusCode)

	var normErr *normalize.Error
	require.ErrorAs(t, err, &normErr)
}

func TestClient_SendMessage_UnrecognizedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendMessage(context.Background(), "hi")
	whErr := expectWebhookError(t, err, normalize.KindUnrecognizedShape)
	require.Contains(t, whErr.Detail, "count")
}

func TestClient_SendMessage_OversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"` + strings.Repeat("a", maxBodyBytes) + `"}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv).SendMessage(context.Background(), "hi")
	require.Empty(t, reply)
	whErr := expectWebhookError(t, err, KindBodyTooLarge)
	require.Equal(t, http.StatusOK, whErr.StatusCode)
}

func TestClient_SendMessage_BodyAtLimit(t *testing.T) {
	body := `"` + strings.Repeat("a", maxBodyBytes-2) + `"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv).SendMessage(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, reply, maxBodyBytes-2)
}

func TestClient_SendMessage_NetworkError(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1/webhook", WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), "hi")
	whErr := expectWebhookError(t, err, KindNetwork)
	require.Equal(t, networkDetail, whErr.Detail)
	require.NotNil(t, whErr.Unwrap())
}

func TestClient_SendMessage_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`"late"`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.SendMessage(context.Background(), "hi")
	expectWebhookError(t, err, KindNetwork)
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: normalize.KindEmptyPayload, Detail: "The server returned an empty data object."}
	require.Equal(t, "webhook: EMPTY_PAYLOAD: The server returned an empty data object.", err.Error())
}
