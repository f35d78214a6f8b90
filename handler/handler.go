package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"webhook-chat/internal/domain"
	"webhook-chat/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxHistory        = 50
)

type AskUseCase interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
}

type Handler struct {
	uc     AskUseCase
	logger *slog.Logger
}

type historyItem struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

type askRequest struct {
	Question string        `json:"question"`
	History  []historyItem `json:"history"`
}

type askResponse struct {
	Answer      string   `json:"answer"`
	Status      string   `json:"status"`
	Suggestions []string `json:"suggestions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(uc AskUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc, logger: slog.Default()}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	var body askRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput)}), nil
	}

	out, err := h.uc.Ask(ctx, usecase.AskInput{
		Question:      body.Question,
		History:       toMessages(body.History),
		CorrelationID: correlationID,
	})
	if err != nil {
		status, code := mapError(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "ask failed", "correlation_id", correlationID, "err", err)
		}
		return jsonResponse(status, correlationID, errorResponse{Error: code}), nil
	}

	suggestions := out.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return jsonResponse(http.StatusOK, correlationID, askResponse{
		Answer:      out.Answer,
		Status:      string(out.Status),
		Suggestions: suggestions,
	}), nil
}

// toMessages keeps the most recent well-formed history entries.
func toMessages(items []historyItem) []domain.Message {
	if len(items) > maxHistory {
		items = items[len(items)-maxHistory:]
	}
	msgs := make([]domain.Message, 0, len(items))
	for _, item := range items {
		if item.Role != domain.RoleUser && item.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(item.Content) == "" {
			continue
		}
		msgs = append(msgs, domain.Message{Role: item.Role, Content: item.Content})
	}
	return msgs
}

func mapError(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorTurnInFlight:
		return http.StatusConflict, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func jsonResponse(status int, correlationID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}
