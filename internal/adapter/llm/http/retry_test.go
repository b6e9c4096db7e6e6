package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return FromStatus("test", 503, "unavailable")
		}
		return nil
	}, fastRetryConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return FromStatus("test", 401, "bad key")
	}, fastRetryConfig(5))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return FromStatus("test", 429, "rate limited")
	}, fastRetryConfig(2))

	require.Error(t, err)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		t.Fatal("operation should not run with cancelled context")
		return nil
	}, fastRetryConfig(5))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NewTimeoutError("test", "deadline")))
	assert.False(t, Retryable(errors.New("generic failure")))
	assert.False(t, Retryable(nil))
}

func TestBackoff_Bounds(t *testing.T) {
	config := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
	}

	for attempt := 0; attempt < 10; attempt++ {
		wait := Backoff(attempt, config)
		assert.GreaterOrEqual(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, config.MaxBackoff)
	}
}
