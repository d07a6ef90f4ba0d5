package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
)

func (m *Manager) processInterview(ctx context.Context, logger *slog.Logger, iv *interview.Interview) error {
	stg, ok := m.stageForStatus(iv.Status)
	if !ok {
		logger.Warn("no stage configured for status", logging.String("status", string(iv.Status)))
		m.waitForWorkOrShutdown(ctx)
		return nil
	}

	stageCtx := services.WithRequestID(
		services.WithStage(
			services.WithInterviewID(ctx, iv.ID),
			stg.name,
		),
		uuid.NewString(),
	)
	stageLogger := logging.WithContext(stageCtx, logger)

	if err := m.transitionToProcessing(stageCtx, stg, iv); err != nil {
		stageLogger.Error("failed to transition interview to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, iv)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, iv *interview.Interview) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("title", strings.TrimSpace(iv.Title)),
	)

	if err := stg.handler.Prepare(ctx, iv); err != nil {
		m.handleStageFailure(ctx, stg.name, iv, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, iv); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg, iv)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, iv, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if iv.Status == stg.processingStatus || iv.Status == "" {
		iv.Status = stg.doneStatus
	}
	iv.LastHeartbeat = nil
	if iv.Status == interview.StatusReady {
		iv.SetProgress("Ready", "Insights ready", 100)
	}
	if err := m.store.Update(ctx, iv); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(iv.Status)),
		logging.String("progress_stage", strings.TrimSpace(iv.ProgressStage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastInterview(iv)
	if iv.Status == interview.StatusReady {
		m.notifyInterviewReady(ctx, iv)
	}
	return nil
}

// executeWithHeartbeat runs the stage handler under a heartbeat loop so the
// repair sweeper can tell live work from abandoned work. The heartbeat covers
// every retry attempt, not just the first.
func (m *Manager) executeWithHeartbeat(ctx context.Context, stg pipelineStage, iv *interview.Interview) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, iv.ID)

	execErr := m.retry.Run(ctx, func() error {
		return stg.handler.Execute(ctx, iv)
	})
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, iv *interview.Interview) error {
	if stg.processingStatus == "" {
		return errors.New("processing status must not be empty")
	}
	now := time.Now().UTC()
	iv.Status = stg.processingStatus
	if iv.ProgressStage == "" || iv.ProgressStage == "Uploaded" {
		iv.SetProgress(stageLabel(stg.processingStatus), fmt.Sprintf("%s started", stageLabel(stg.processingStatus)), iv.ProgressPercent)
	}
	iv.ErrorMessage = ""
	iv.LastHeartbeat = &now
	if err := m.store.Update(ctx, iv); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastInterview(iv)
	return nil
}

func stageLabel(status interview.Status) string {
	if status == "" {
		return ""
	}
	switch status {
	case interview.StatusTranscribing:
		return "Transcribing"
	case interview.StatusProcessing:
		return "Analyzing"
	case interview.StatusReady:
		return "Ready"
	default:
		return strings.ToUpper(string(status[:1])) + string(status[1:])
	}
}
