// Package retry provides the single retry-with-backoff combinator shared by
// every caller that needs one, instead of ad hoc loops at each call site.
package retry

import (
	"context"
	"time"
)

// Policy parameterizes a retry loop: how many attempts, the base delay, and
// which errors are worth retrying at all.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; it doubles after each
	// subsequent failure (exponential backoff).
	BaseDelay time.Duration
	// Retryable decides whether an error should be retried. A nil predicate
	// retries everything.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the policy is exhausted, a non-retryable
// error occurs, or the context is cancelled. It returns the last error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
