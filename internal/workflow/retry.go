package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"chorus/internal/config"
	"chorus/internal/services"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// retryPolicy retries transient stage failures with exponential backoff.
// Validation, configuration, and not-found failures never retry; they go
// straight to the error status.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func newRetryPolicy(cfg *config.Config) retryPolicy {
	policy := retryPolicy{
		maxAttempts: cfg.Workflow.RetryMaxAttempts,
		baseDelay:   time.Duration(cfg.Workflow.RetryBaseDelay) * time.Second,
		maxDelay:    time.Duration(cfg.Workflow.RetryMaxDelay) * time.Second,
	}
	if policy.maxAttempts <= 0 {
		policy.maxAttempts = defaultRetryAttempts
	}
	if policy.baseDelay <= 0 {
		policy.baseDelay = defaultRetryBaseDelay
	}
	if policy.maxDelay <= 0 {
		policy.maxDelay = defaultRetryMaxDelay
	}
	return policy
}

// Run executes fn, retrying transient failures up to the configured attempt
// budget. The error returned is the one from the final attempt.
func (p retryPolicy) Run(ctx context.Context, fn func() error) error {
	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if services.IsFatal(err) {
			return backoff.Permanent(err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.baseDelay
	expo.MaxInterval = p.maxDelay
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.maxAttempts-1)), ctx)
	return backoff.Retry(operation, policy)
}
