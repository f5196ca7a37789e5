package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// newBackOff builds an exponential policy bounded by MaxAttempts and ctx.
func (cfg RetryConfig) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialDelay
	eb.MaxInterval = cfg.MaxDelay
	eb.Multiplier = cfg.BackoffFactor
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = eb
	if cfg.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Retry executes fn with exponential backoff. Errors wrapped with Permanent
// stop retrying immediately.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	return backoff.Retry(fn, cfg.newBackOff(ctx))
}

// RetryWithResult executes fn with exponential backoff and returns its result.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	return backoff.RetryWithData(fn, cfg.newBackOff(ctx))
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
