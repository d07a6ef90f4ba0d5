package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/stage"
)

type subStage struct {
	name    string
	handler stage.Handler
	// marker is persisted as the interview status once this sub-stage
	// completes, recording a safe re-entry point for the chain.
	marker interview.Status
}

// Processor chains the analysis sub-stages (evidence extraction, insight
// synthesis, theme analysis, answer attribution) into a single pipeline stage.
// Each sub-stage regenerates its output from scratch, so re-running the
// processor over a partially analyzed interview converges to the same result.
type Processor struct {
	store  *interview.Store
	logger *slog.Logger
	stages []subStage
}

// NewProcessor builds the composite analysis stage from its sub-handlers.
func NewProcessor(store *interview.Store, logger *slog.Logger, stages ...subStage) *Processor {
	return &Processor{
		store:  store,
		logger: logging.NewComponentLogger(logger, "processor"),
		stages: stages,
	}
}

// Prepare delegates to the first sub-stage so the envelope is seeded before
// any analysis runs.
func (p *Processor) Prepare(ctx context.Context, iv *interview.Interview) error {
	if len(p.stages) == 0 {
		return fmt.Errorf("no analysis stages configured")
	}
	return p.stages[0].handler.Prepare(ctx, iv)
}

// Execute runs the analysis sub-stages in order, persisting the interview
// between sub-stages so a crash mid-chain leaves recoverable progress behind.
func (p *Processor) Execute(ctx context.Context, iv *interview.Interview) error {
	logger := logging.WithContext(ctx, p.logger)
	for i, sub := range p.stages {
		start := time.Now()
		if i > 0 {
			if err := sub.handler.Prepare(ctx, iv); err != nil {
				return fmt.Errorf("%s prepare: %w", sub.name, err)
			}
		}
		if err := sub.handler.Execute(ctx, iv); err != nil {
			return fmt.Errorf("%s: %w", sub.name, err)
		}
		if sub.marker != "" {
			iv.Status = sub.marker
		}
		if err := p.store.Update(ctx, iv); err != nil {
			return fmt.Errorf("persist %s result: %w", sub.name, err)
		}
		logger.Info("analysis sub-stage completed",
			logging.String(logging.FieldStage, sub.name),
			logging.Duration("sub_stage_duration", time.Since(start)),
		)
	}
	// Hand the chain back under the processing status so the manager's done
	// transition applies; the persisted marker has already served its purpose.
	if iv.Status == interview.StatusTagged {
		iv.Status = interview.StatusProcessing
	}
	return nil
}

// HealthCheck reports unhealthy if any sub-stage is unhealthy.
func (p *Processor) HealthCheck(ctx context.Context) stage.Health {
	var failures []string
	for _, sub := range p.stages {
		health := sub.handler.HealthCheck(ctx)
		if !health.Ready {
			failures = append(failures, fmt.Sprintf("%s: %s", sub.name, health.Detail))
		}
	}
	if len(failures) > 0 {
		return stage.Unhealthy("processor", strings.Join(failures, "; "))
	}
	return stage.Healthy("processor")
}
