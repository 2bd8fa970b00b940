package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xhad/contractqa/internal/logger"
)

// RetryPolicy bounds repeated model calls. MaxAttempts below 2 disables
// retrying.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// backOff doubles BaseDelay after every retry up to MaxDelay and stops
// after MaxAttempts-1 retries or once ctx is done.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	base := p.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = backoff.DefaultMaxInterval
	}

	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(base),
		backoff.WithRandomizationFactor(0),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(maxDelay),
		backoff.WithMaxElapsedTime(0),
	)

	var retries uint64
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, retries), ctx)
}

func (p RetryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	attempt := 0

	return backoff.RetryNotify(func() error {
		attempt++
		return fn(ctx)
	}, p.backOff(ctx), func(err error, delay time.Duration) {
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, attempts, delay, err)
	})
}
