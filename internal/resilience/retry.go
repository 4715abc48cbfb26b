// Package resilience retries store operations that fail for transient
// reasons such as a database still starting up or a locked SQLite file.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// JitterFraction adds ±fraction of the computed delay.
	JitterFraction float64

	// ShouldRetry overrides IsTransient when set.
	ShouldRetry func(err error) bool

	OnRetry func(attempt int, err error)
}

// StoreRetryConfig suits opening a database that may still be starting.
func StoreRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// WriteRetryConfig suits a single write contending for a lock.
func WriteRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Do runs fn until it succeeds, fails with a non-transient error, the
// attempts run out or ctx ends.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(lastErr) {
			return zero, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(computeBackoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(component, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying",
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
