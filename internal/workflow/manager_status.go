package workflow

import (
	"context"

	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running       bool
	LastError     string
	LastInterview *interview.Interview
	QueueStats    map[interview.Status]int
	StageHealth   map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastInterview := m.lastInterview
	stages := make([]pipelineStage, len(m.stages))
	copy(stages, m.stages)
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read interview stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			continue
		}
		if _, seen := health[stg.name]; seen {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastInterview != nil {
		clone := *lastInterview
		summary.LastInterview = &clone
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastInterview(iv *interview.Interview) {
	m.mu.Lock()
	if iv != nil {
		clone := *iv
		m.lastInterview = &clone
	} else {
		m.lastInterview = nil
	}
	m.mu.Unlock()
}
