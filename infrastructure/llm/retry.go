package llm

import (
	"math"
	"math/rand/v2"
	"time"

	"context"
)

// Default retry configuration constants.
const (
	// DefaultMaxAttempts is the default total number of invocations,
	// including the first.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the default delay before the first retry.
	DefaultBaseDelay = 1 * time.Second
	// DefaultMaxDelay caps the exponential backoff.
	DefaultMaxDelay = 30 * time.Second
	// DefaultBackoffMultiplier is the default exponential growth factor.
	DefaultBackoffMultiplier = 2.0
	// jitterFraction is the maximum fraction of the computed delay added as
	// random jitter to avoid synchronized retry storms across callers.
	jitterFraction = 0.3
)

// RetryPolicy controls the backoff behavior of ExecuteWithRetry.
// It is immutable per invocation; zero fields are replaced with defaults.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of invocations, including the
	// first. Values below 1 behave as 1.
	MaxAttempts int

	// BaseDelay sets the delay before the first retry. Subsequent delays
	// grow by BackoffMultiplier per attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay before jitter is added.
	MaxDelay time.Duration

	// BackoffMultiplier is the exponential growth factor and must be
	// greater than 1 to be meaningful.
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns the policy used when a caller supplies none.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxAttempts,
		BaseDelay:         DefaultBaseDelay,
		MaxDelay:          DefaultMaxDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// withDefaults fills zero fields from the default policy.
func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.BackoffMultiplier <= 1 {
		p.BackoffMultiplier = d.BackoffMultiplier
	}
	return p
}

// delay computes the backoff before retry number attempt+1:
// min(base * multiplier^attempt, max) plus up to 30% random jitter.
func (p RetryPolicy) delay(attempt int) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if capped := float64(p.MaxDelay); backoff > capped {
		backoff = capped
	}
	//nolint:gosec // G404: math/rand is acceptable for retry jitter timing.
	jitter := rand.Float64() * jitterFraction * backoff
	return time.Duration(backoff + jitter)
}

// ExecuteWithRetry invokes op, retrying transient failures with exponential
// backoff and jitter. The operation is invoked at most policy.MaxAttempts
// times. Non-retryable errors and the final failure are returned unchanged,
// preserving the original error identity for downstream classification.
// Idempotency of op under repeated invocation is the caller's responsibility.
func ExecuteWithRetry(ctx context.Context, op Operation, policy RetryPolicy) (any, error) {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}

		lastErr = err
		if attempt == policy.MaxAttempts-1 || !IsRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}

	return nil, lastErr
}
