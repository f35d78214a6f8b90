// Package server exposes the chat conversation over HTTP and serves the
// browser page that renders it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"webhook-chat/internal/usecase"
)

const (
	defaultTitle        = "Webhook Chat"
	defaultRatePerMin   = 60
	maxRequestBodyBytes = 64 << 10
)

// ChatAPI is the chat use case the server drives.
type ChatAPI interface {
	Send(ctx context.Context, sessionID, text string) (usecase.SendOutput, error)
	Conversation(sessionID string) usecase.SendOutput
}

type Server struct {
	router        *chi.Mux
	chat          ChatAPI
	limiter       *rate.Limiter
	logger        *slog.Logger
	title         string
	allowedOrigin string
	cookieMaxAge  time.Duration
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit caps message submissions across all sessions.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = newLimiter(perMinute)
		}
	}
}

func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.allowedOrigin = origin
		}
	}
}

func WithTitle(title string) Option {
	return func(s *Server) {
		if title != "" {
			s.title = title
		}
	}
}

// WithSessionTTL sets the lifetime of the session cookie.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.cookieMaxAge = ttl
		}
	}
}

func New(chat ChatAPI, opts ...Option) (*Server, error) {
	if chat == nil {
		return nil, errors.New("server: chat service must not be nil")
	}
	s := &Server{
		router:        chi.NewRouter(),
		chat:          chat,
		limiter:       newLimiter(defaultRatePerMin),
		logger:        slog.Default(),
		title:         defaultTitle,
		allowedOrigin: "*",
		cookieMaxAge:  defaultCookieMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: s.allowedOrigin != "*",
		MaxAge:           300,
	}))
	s.routes()
	return s, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func (s *Server) routes() {
	s.router.Get("/", s.handlePage)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/conversation", s.handleConversation)
	s.router.Post("/api/messages", s.handleSendMessage)
}

func (s *Server) Router() http.Handler { return s.router }

type sendMessageRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	out := s.chat.Conversation(sessionFromCookie(r))
	setSessionCookie(w, r, out.SessionID, s.cookieMaxAge)
	writeJSON(w, http.StatusOK, newSnapshotResponse(out.Snapshot))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many messages. Please wait a moment.")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, string(usecase.ErrorInvalidInput), "invalid JSON body")
		return
	}

	out, err := s.chat.Send(r.Context(), sessionFromCookie(r), req.Text)
	if out.SessionID != "" {
		setSessionCookie(w, r, out.SessionID, s.cookieMaxAge)
	}
	if err != nil {
		status, code, msg := mapError(err)
		if status >= http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "send message failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		}
		s.writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(out.Snapshot))
}

func mapError(err error) (int, string, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal), "internal error"
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code), "message must be non-empty and within the length limit"
	case usecase.ErrorTurnInFlight:
		return http.StatusConflict, string(ucErr.Code), "a reply is still on its way"
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal), "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
