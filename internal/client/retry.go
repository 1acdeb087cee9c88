package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/humanbelnik/gamenight/internal/apperr"
)

// RetryPolicy applies to idempotent reads only. Creating a session and
// claiming a seat are never retried.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxTries     uint
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     15 * time.Second,
		MaxTries:     4,
	}
}

func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return b
}

// Delay is the wait before retry number attempt, counting from zero.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	b := p.newBackOff()
	d := b.NextBackOff()
	for range attempt {
		d = b.NextBackOff()
	}
	return d
}

// retryRead repeats fn while it fails with a transient kind.
func retryRead[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !apperr.Retryable(apperr.KindOf(err)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(0),
	)
}
