package shared

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds Retry.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultSQLiteRetry matches the backoff used for busy SQLite writes: 50ms, 100ms, 200ms.
var DefaultSQLiteRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond}

// Retry calls fn until it succeeds, returns a non-retryable error or the
// attempts are exhausted. Delays double after each attempt.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, op string, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var err error
	for i := 0; i < policy.MaxAttempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) || i == policy.MaxAttempts-1 {
			return err
		}

		delay := policy.BaseDelay * time.Duration(1<<i)
		slog.Debug("Retrying operation",
			"op", op,
			"attempt", i+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
