package repair

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chorus/internal/config"
	"chorus/internal/logging"
	"chorus/internal/notifications"
)

const sweepBackoffCap = 4

// Sweeper runs the repairer periodically at the conservative cleanup
// threshold. Failed sweeps back the interval off (doubling, capped) so a
// broken store does not get hammered; the first successful sweep resets it.
type Sweeper struct {
	cfg      *config.Config
	repairer *Repairer
	logger   *slog.Logger
	notifier notifications.Service

	baseInterval time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	failures int
}

// NewSweeper builds the periodic repair sweeper.
func NewSweeper(cfg *config.Config, repairer *Repairer, logger *slog.Logger, notifier notifications.Service) *Sweeper {
	interval := time.Duration(cfg.Repair.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Sweeper{
		cfg:          cfg,
		repairer:     repairer,
		logger:       logging.NewComponentLogger(logger, "repair-sweeper"),
		notifier:     notifier,
		baseInterval: interval,
	}
}

// Start begins periodic sweeping. It is a no-op when sweeping is disabled.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.cfg.Repair.SweepEnabled {
		s.logger.Info("repair sweep disabled by configuration")
		return nil
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("sweeper already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop terminates sweeping and waits for the loop to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.currentInterval()):
		}

		if err := s.SweepOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.recordFailure()
			s.logger.Error("repair sweep failed",
				logging.Error(err),
				logging.Duration("next_attempt_in", s.currentInterval()),
				logging.String(logging.FieldEventType, "sweep_failed"),
			)
			continue
		}
		s.recordSuccess()
	}
}

// SweepOnce runs a single repair pass at the cleanup staleness threshold and
// reports the outcome.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	outcome, err := s.repairer.repairAt(ctx, s.repairer.cleanupCutoff())
	if err != nil {
		return err
	}
	if outcome.Total() == 0 {
		return nil
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyRepairCompleted(ctx, outcome.Completed, outcome.Failed, outcome.Requeued); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("repair notification failed", logging.Error(err))
		}
	}
	return nil
}

func (s *Sweeper) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	interval := s.baseInterval
	for i := 0; i < s.failures; i++ {
		interval *= 2
	}
	return interval
}

func (s *Sweeper) recordFailure() {
	s.mu.Lock()
	if s.failures < sweepBackoffCap {
		s.failures++
	}
	s.mu.Unlock()
}

func (s *Sweeper) recordSuccess() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}
