package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy bounds the retries of a single unreliable call.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Retryable decides which failures are worth another attempt.
	Retryable func(error) bool
	// Sleep waits between attempts; nil uses a timer bound to ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries transient upstream failures up to five times,
// waiting 4s, 8s, then 10s between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 4 * time.Second,
		MaxBackoff:     10 * time.Second,
		Retryable:      IsTransient,
	}
}

// Backoff returns the wait before attempt n+1, where n counts from 1.
func (p RetryPolicy) Backoff(n int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. Exhaustion is reported as ErrRetriesExhausted wrapping the
// last error.
func Retry[T any](ctx context.Context, p RetryPolicy, operation string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		backoff := p.Backoff(attempt)
		slog.Warn("Call failed, will retry.",
			"operation", operation,
			"attempt", attempt,
			"maxAttempts", attempts,
			"backoff", backoff.String(),
			"error", err,
		)
		if err := sleep(ctx, backoff); err != nil {
			return zero, fmt.Errorf("%s: aborted during backoff: %w", operation, err)
		}
	}
	slog.Error("Call failed after all retries.", "operation", operation, "error", lastErr)
	return zero, fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, operation, attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
