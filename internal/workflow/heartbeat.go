package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chorus/internal/interview"
	"chorus/internal/logging"
)

// HeartbeatMonitor refreshes interview heartbeats while a stage executes.
// A refreshed heartbeat also bumps updated_at, which is what keeps actively
// processed interviews out of the stuck-interview sweep.
type HeartbeatMonitor struct {
	store    *interview.Store
	logger   *slog.Logger
	interval time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *interview.Store, logger *slog.Logger, interval time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HeartbeatMonitor{store: store, logger: logger, interval: interval}
}

// StartLoop runs a heartbeat updater for a specific interview until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, interviewID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "workflow-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, interviewID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("daemon shutting down, heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
