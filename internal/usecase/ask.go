package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"webhook-chat/internal/conversation"
	"webhook-chat/internal/domain"
)

// AskService relays one stateless turn. The caller owns the history.
type AskService struct {
	relay          Relay
	suggester      Suggester
	failures       failureReporter
	maxQuestionLen int
}

type AskInput struct {
	Question      string
	History       []domain.Message
	CorrelationID string
}

type AskOutput struct {
	Answer      string
	Status      domain.Status
	Suggestions []string
	TurnID      string
}

func NewAskService(relay Relay, suggester Suggester, opts ...Option) (*AskService, error) {
	if relay == nil {
		return nil, errors.New("usecase: relay must not be nil")
	}
	if suggester == nil {
		return nil, errors.New("usecase: suggester must not be nil")
	}
	o := buildOptions(opts)
	return &AskService{
		relay:          relay,
		suggester:      suggester,
		failures:       failureReporter{logger: o.logger, recorder: o.recorder},
		maxQuestionLen: o.maxQuestionLen,
	}, nil
}

func (s *AskService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return AskOutput{}, newError(ErrorInvalidInput, "empty_question", nil)
	}
	if len(question) > s.maxQuestionLen {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}

	turnID := newUUID()
	sessionID := strings.TrimSpace(in.CorrelationID)
	if sessionID == "" {
		sessionID = turnID
	}

	reply, err := s.relay.SendMessage(ctx, question)
	if err != nil {
		s.failures.report(ctx, sessionID, turnID, err)
		return AskOutput{
			Answer:      conversation.GracefulMessage,
			Status:      domain.StatusError,
			Suggestions: s.suggester.Fallback(),
			TurnID:      turnID,
		}, nil
	}

	now := clock()
	history := make([]domain.Message, 0, len(in.History)+2)
	history = append(history, in.History...)
	history = append(history,
		domain.Message{ID: turnID, Role: domain.RoleUser, Content: question, Timestamp: now, Status: domain.StatusSent},
		domain.Message{ID: newUUID(), Role: domain.RoleAssistant, Content: reply, Timestamp: now},
	)

	return AskOutput{
		Answer:      reply,
		Status:      domain.StatusSent,
		Suggestions: s.suggester.GetSuggestions(ctx, history),
		TurnID:      turnID,
	}, nil
}

var (
	newUUID = func() string { return uuid.NewString() }
	clock   = func() time.Time { return time.Now().UTC() }
)
