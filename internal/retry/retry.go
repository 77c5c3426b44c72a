// Package retry runs remote calls with bounded linear backoff.
//
// Only transient provider failures (domain.ErrRemoteService) are retried.
// Any other error is returned on first occurrence. The final failure is
// returned unchanged so callers can inspect it with errors.Is / errors.As.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Defaults used by every remote call wrapper.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures bounded linear backoff: the wait before attempt n+1 is Delay*n.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep overrides the wait, tests use it to record the schedule.
	Sleep SleepFunc
}

// DefaultPolicy returns 3 attempts with 1s, 2s waits between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Do calls fn until it succeeds, fails with a non-transient error, or
// MaxAttempts is reached.
func Do[T any](ctx context.Context, p Policy, operation string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	for attempt := 1; ; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}

		if !domain.IsTransient(err) {
			metrics.RetryAttemptsTotal.WithLabelValues(operation, "permanent").Inc()
			return zero, err
		}
		if attempt >= attempts {
			metrics.RetryAttemptsTotal.WithLabelValues(operation, "exhausted").Inc()
			logger.FromContext(ctx).Error("retry_exhausted",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return zero, err
		}

		wait := p.Delay * time.Duration(attempt)
		metrics.RetryAttemptsTotal.WithLabelValues(operation, "retry").Inc()
		logger.FromContext(ctx).Warn("retry_attempt",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		if serr := sleep(ctx, wait); serr != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
