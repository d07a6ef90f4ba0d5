package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
)

// handleStageFailure moves an interview to the error status with a
// human-readable reason. It is the only place the workflow writes the error
// status, so every failed interview carries failure metadata.
func (m *Manager) handleStageFailure(ctx context.Context, stageName string, iv *interview.Interview, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "workflow-manager"))

	message := m.classifyStageFailure(stageName, stageErr)
	iv.SetError(message)

	details := services.Details(stageErr)
	attrs := []logging.Attr{
		logging.String("resolved_status", string(interview.StatusError)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String(logging.FieldErrorOperation, details.Operation),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)

	if err := m.store.Update(ctx, iv); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastInterview(iv)
	m.notifyStageError(ctx, stageName, iv, stageErr)
}

func (m *Manager) classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	return message
}

func (m *Manager) notifyStageError(ctx context.Context, stageName string, iv *interview.Interview, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))
	if err := m.notifier.NotifyInterviewFailed(ctx, iv.Title, strings.TrimSpace(iv.ErrorMessage)); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			logger.Debug("failure notification failed", logging.Error(err))
		}
	}
	contextLabel := fmt.Sprintf("%s (interview #%d)", stageName, iv.ID)
	if err := m.notifier.NotifyError(ctx, stageErr, contextLabel); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("error notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyInterviewReady(ctx context.Context, iv *interview.Interview) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyInterviewReady(ctx, iv.Title); err != nil && !errors.Is(err, context.Canceled) {
		logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))
		logger.Debug("ready notification failed", logging.Error(err))
	}
}
