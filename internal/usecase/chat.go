package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"webhook-chat/internal/conversation"
	"webhook-chat/internal/domain"
)

const defaultMaxQuestion = 2000

// Relay sends one user message to the webhook and returns the reply text.
type Relay interface {
	SendMessage(ctx context.Context, question string) (string, error)
}

// Suggester proposes follow-up prompts.
type Suggester interface {
	GetSuggestions(ctx context.Context, history []domain.Message) []string
	Fallback() []string
}

// Sessions resolves the conversation of a browser session.
type Sessions interface {
	GetOrCreate(id string) (*conversation.Conversation, string)
}

type ChatService struct {
	relay          Relay
	suggester      Suggester
	sessions       Sessions
	failures       failureReporter
	logger         *slog.Logger
	maxQuestionLen int

	background sync.WaitGroup
}

type SendOutput struct {
	SessionID string
	Snapshot  conversation.Snapshot
}

type Option func(*options)

type options struct {
	logger         *slog.Logger
	recorder       FailureRecorder
	maxQuestionLen int
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithFailureRecorder stores failure diagnostics in addition to logging them.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

func WithMaxQuestionLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxQuestionLen = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), maxQuestionLen: defaultMaxQuestion}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewChatService(relay Relay, suggester Suggester, sessions Sessions, opts ...Option) (*ChatService, error) {
	if relay == nil {
		return nil, errors.New("usecase: relay must not be nil")
	}
	if suggester == nil {
		return nil, errors.New("usecase: suggester must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: sessions must not be nil")
	}
	o := buildOptions(opts)
	return &ChatService{
		relay:          relay,
		suggester:      suggester,
		sessions:       sessions,
		failures:       failureReporter{logger: o.logger, recorder: o.recorder},
		logger:         o.logger,
		maxQuestionLen: o.maxQuestionLen,
	}, nil
}

// Conversation returns the current state of a session, creating it if needed.
// A new session starts computing suggestions for its welcome message; they
// show up in a later snapshot.
func (s *ChatService) Conversation(sessionID string) SendOutput {
	conv, sid := s.sessions.GetOrCreate(sessionID)
	snap := conv.Snapshot()
	if sid != sessionID {
		s.refreshSuggestions(sid, conv, snap.Generation, snap.Messages)
	}
	return SendOutput{SessionID: sid, Snapshot: snap}
}

// Send runs one turn for the session. Webhook failures are not errors: the
// turn settles with the graceful message and the fallback suggestions. Send
// fails only for invalid input or when a turn is already in flight.
func (s *ChatService) Send(ctx context.Context, sessionID, text string) (SendOutput, error) {
	conv, sid := s.sessions.GetOrCreate(sessionID)
	if len(strings.TrimSpace(text)) > s.maxQuestionLen {
		return SendOutput{SessionID: sid}, newError(ErrorInvalidInput, "question_too_long", nil)
	}

	turn, err := conv.Begin(text)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		return SendOutput{SessionID: sid}, newError(ErrorInvalidInput, "empty_question", err)
	case errors.Is(err, conversation.ErrTurnInFlight):
		return SendOutput{SessionID: sid}, newError(ErrorTurnInFlight, "turn_in_flight", err)
	case err != nil:
		return SendOutput{SessionID: sid}, newError(ErrorInternal, "begin_turn", err)
	}

	reply, err := s.relay.SendMessage(ctx, turn.Text)
	if err != nil {
		s.failures.report(ctx, sid, turn.MessageID, err)
		if failErr := conv.Fail(turn, s.suggester.Fallback()); failErr != nil {
			return SendOutput{SessionID: sid}, newError(ErrorInternal, "fail_turn", failErr)
		}
		return SendOutput{SessionID: sid, Snapshot: conv.Snapshot()}, nil
	}

	history, err := conv.Settle(turn, reply)
	if err != nil {
		return SendOutput{SessionID: sid}, newError(ErrorInternal, "settle_turn", err)
	}
	s.refreshSuggestions(sid, conv, turn.Generation, history)
	return SendOutput{SessionID: sid, Snapshot: conv.Snapshot()}, nil
}

// refreshSuggestions computes follow-ups off the request path. A result that
// arrives after a newer turn began is dropped by the conversation.
func (s *ChatService) refreshSuggestions(sessionID string, conv *conversation.Conversation, generation uint64, history []domain.Message) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		list := s.suggester.GetSuggestions(context.Background(), history)
		if !conv.ApplySuggestions(generation, list) {
			s.logger.Debug("discarded stale suggestions", "session", sessionID, "generation", generation)
		}
	}()
}

// Wait blocks until background suggestion refreshes have finished.
func (s *ChatService) Wait() {
	s.background.Wait()
}
