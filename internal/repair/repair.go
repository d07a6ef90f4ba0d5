package repair

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
)

// Outcome summarizes the effect of a repair pass.
type Outcome struct {
	Completed int
	Failed    int
	Requeued  int
}

// Total returns the number of interviews repaired.
func (o Outcome) Total() int {
	return o.Completed + o.Failed + o.Requeued
}

// Result reports what a single-interview repair decided and did.
type Result struct {
	Action  Action
	Applied bool
}

// Repairer applies stuck-interview repairs through the store's conditional
// writes. It never writes unconditionally, so running it twice, or while the
// workflow resumes an interview concurrently, is safe.
type Repairer struct {
	cfg    *config.Config
	store  *interview.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRepairer builds a repairer over the interview store.
func NewRepairer(cfg *config.Config, store *interview.Store, logger *slog.Logger) *Repairer {
	return &Repairer{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "repair"),
		now:    time.Now,
	}
}

// RepairOne repairs a single interview at the dashboard staleness threshold.
// A missing interview yields a not-found error; an interview that is not
// stuck yields ActionNone with Applied false.
func (r *Repairer) RepairOne(ctx context.Context, id int64) (Result, error) {
	iv, err := r.store.GetByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if iv == nil {
		return Result{}, services.Wrap(services.ErrNotFound, "repair", "repair-one", fmt.Sprintf("interview %d not found", id), nil)
	}

	cutoff := r.dashboardCutoff()
	action := Plan(iv, cutoff)
	result := Result{Action: action}

	switch action {
	case ActionComplete:
		n, err := r.store.CompleteStaleWithTranscript(ctx, []int64{id}, cutoff)
		if err != nil {
			return result, err
		}
		result.Applied = n > 0
	case ActionFail:
		n, err := r.store.FailStaleWithoutSource(ctx, []int64{id}, cutoff, FailureReason)
		if err != nil {
			return result, err
		}
		result.Applied = n > 0
	case ActionRequeue:
		applied, err := r.store.RequeueStaleForTranscription(ctx, id, cutoff)
		if err != nil {
			return result, err
		}
		result.Applied = applied
	case ActionNone:
		// Nothing to do; the interview resumed or was never stuck.
	}

	if result.Applied {
		r.logger.Info("repaired stuck interview",
			logging.Int64(logging.FieldInterviewID, id),
			logging.String("action", string(result.Action)),
			logging.String(logging.FieldEventType, "repair_applied"),
		)
	}
	return result, nil
}

// RepairAll repairs every stuck interview at the dashboard staleness
// threshold.
func (r *Repairer) RepairAll(ctx context.Context) (Outcome, error) {
	return r.repairAt(ctx, r.dashboardCutoff())
}

// repairAt partitions the stale set by plan and applies each partition with
// at most one batched write (plus one conditional write per requeue). Rows
// that resumed between detection and repair fail the write-time guard and
// drop out of the counts.
func (r *Repairer) repairAt(ctx context.Context, cutoff time.Time) (Outcome, error) {
	stale, err := r.store.FindStale(ctx, cutoff)
	if err != nil {
		return Outcome{}, err
	}

	var completeIDs, failIDs, requeueIDs []int64
	for _, iv := range stale {
		switch Plan(iv, cutoff) {
		case ActionComplete:
			completeIDs = append(completeIDs, iv.ID)
		case ActionFail:
			failIDs = append(failIDs, iv.ID)
		case ActionRequeue:
			requeueIDs = append(requeueIDs, iv.ID)
		}
	}

	var outcome Outcome
	if len(completeIDs) > 0 {
		n, err := r.store.CompleteStaleWithTranscript(ctx, completeIDs, cutoff)
		if err != nil {
			return outcome, fmt.Errorf("complete stale interviews: %w", err)
		}
		outcome.Completed = int(n)
	}
	if len(failIDs) > 0 {
		n, err := r.store.FailStaleWithoutSource(ctx, failIDs, cutoff, FailureReason)
		if err != nil {
			return outcome, fmt.Errorf("fail stale interviews: %w", err)
		}
		outcome.Failed = int(n)
	}
	for _, id := range requeueIDs {
		applied, err := r.store.RequeueStaleForTranscription(ctx, id, cutoff)
		if err != nil {
			return outcome, fmt.Errorf("requeue stale interview %d: %w", id, err)
		}
		if applied {
			outcome.Requeued++
		}
	}

	if outcome.Total() > 0 {
		r.logger.Info("repair pass completed",
			logging.Int("completed", outcome.Completed),
			logging.Int("failed", outcome.Failed),
			logging.Int("requeued", outcome.Requeued),
			logging.String(logging.FieldEventType, "repair_pass"),
		)
	}
	return outcome, nil
}

func (r *Repairer) dashboardCutoff() time.Time {
	return r.now().Add(-time.Duration(r.cfg.Repair.DashboardStaleMinutes) * time.Minute)
}

func (r *Repairer) cleanupCutoff() time.Time {
	return r.now().Add(-time.Duration(r.cfg.Repair.CleanupStaleMinutes) * time.Minute)
}
