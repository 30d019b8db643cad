package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/constraintd/constraintd/core"
)

// RetryConfig configures RetryLoad's backoff schedule.
type RetryConfig struct {
	MaxAttempts   uint
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig mirrors the teacher's defaults: three attempts, 100ms
// initial delay, 2x backoff, capped at 5s.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryLoad calls loader.Load, retrying transient failures with exponential
// backoff. Any error that is or wraps a *core.LoadError is retried; any
// other error is returned after the first attempt. yamlloader reports every
// failure, a malformed file included, as a LoadError, so all of its
// failures are retried up to MaxAttempts times.
func RetryLoad(ctx context.Context, loader core.LibraryLoader, config *RetryConfig) (core.Library, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = config.InitialDelay
	eb.MaxInterval = config.MaxDelay
	eb.Multiplier = config.BackoffFactor

	var attempts int
	lib, err := backoff.Retry(ctx, func() (core.Library, error) {
		attempts++
		lib, err := loader.Load(ctx)
		if err != nil {
			var loadErr *core.LoadError
			if !errors.As(err, &loadErr) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return lib, nil
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(config.MaxAttempts))

	if err != nil {
		return nil, fmt.Errorf("library load failed after %d attempts: %w", attempts, err)
	}
	return lib, nil
}
