package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/notifications"
)

// Manager coordinates interview processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *interview.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor
	retry     retryPolicy

	mu            sync.RWMutex
	running       bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	lastErr       error
	lastInterview *interview.Interview

	stages       []pipelineStage
	stageByStart map[interview.Status]pipelineStage
	statusOrder  []interview.Status
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, store *interview.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *interview.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
		),
		retry: newRetryPolicy(cfg),
	}
}
