package http

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig bounds the retry loop for a single transport.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns the retry policy applied when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// Backoff computes the wait before the given attempt:
// min(initial * multiplier^attempt, max) with ±25% jitter.
func Backoff(attempt int, config RetryConfig) time.Duration {
	wait := float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt))
	if wait > float64(config.MaxBackoff) {
		wait = float64(config.MaxBackoff)
	}

	jitterRange := 0.25 * wait
	wait += (rand.Float64() * 2 * jitterRange) - jitterRange

	if wait > float64(config.MaxBackoff) {
		wait = float64(config.MaxBackoff)
	}
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// Retryable reports whether an error may be retried. Only typed transport
// errors carry retry semantics; anything else fails immediately.
func Retryable(err error) bool {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.IsRetryable()
	}
	return false
}

// Operation is a single attempt of the call under retry.
type Operation func(ctx context.Context) error

// RetryWithBackoff runs the operation until it succeeds, returns a
// non-retryable error, exhausts the retry budget, or the context ends.
func RetryWithBackoff(ctx context.Context, operation Operation, config RetryConfig) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) || attempt >= config.MaxRetries {
			return err
		}

		select {
		case <-time.After(Backoff(attempt, config)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
