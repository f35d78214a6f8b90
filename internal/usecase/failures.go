package usecase

import (
	"context"
	"errors"
	"log/slog"

	"webhook-chat/internal/integrations/webhook"
)

const kindInternal = "INTERNAL"

// FailureRecorder persists diagnostics for failed turns.
type FailureRecorder interface {
	Record(ctx context.Context, sessionID, turnID, kind, detail string, statusCode int) error
}

// failureReporter logs the precise cause of a failed turn. The user only ever
// sees the graceful message.
type failureReporter struct {
	logger   *slog.Logger
	recorder FailureRecorder
}

func (r failureReporter) report(ctx context.Context, sessionID, turnID string, err error) {
	kind, detail, status := kindInternal, err.Error(), 0
	var whErr *webhook.Error
	if errors.As(err, &whErr) {
		kind, detail, status = string(whErr.Kind), whErr.Detail, whErr.StatusCode
	}

	r.logger.ErrorContext(ctx, "webhook turn failed",
		"session", sessionID,
		"turn", turnID,
		"kind", kind,
		"status", status,
		"detail", detail,
		"err", err,
	)

	if r.recorder == nil {
		return
	}
	if recErr := r.recorder.Record(context.WithoutCancel(ctx), sessionID, turnID, kind, detail, status); recErr != nil {
		r.logger.WarnContext(ctx, "failed to record turn failure", "session", sessionID, "turn", turnID, "err", recErr)
	}
}
