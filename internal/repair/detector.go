package repair

import (
	"context"
	"time"

	"chorus/internal/config"
	"chorus/internal/interview"
)

// Detector finds interviews that look stuck at the dashboard threshold.
type Detector struct {
	store *interview.Store
	cfg   *config.Config
	now   func() time.Time
}

// NewDetector builds a detector over the interview store.
func NewDetector(cfg *config.Config, store *interview.Store) *Detector {
	return &Detector{store: store, cfg: cfg, now: time.Now}
}

// StuckInterviews returns in-flight interviews whose updated_at is older than
// the dashboard staleness threshold, oldest first.
func (d *Detector) StuckInterviews(ctx context.Context) ([]*interview.Interview, error) {
	return d.store.FindStale(ctx, d.dashboardCutoff())
}

func (d *Detector) dashboardCutoff() time.Time {
	return d.now().Add(-time.Duration(d.cfg.Repair.DashboardStaleMinutes) * time.Minute)
}
