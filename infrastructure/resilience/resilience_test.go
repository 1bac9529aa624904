package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("test-bridge", BreakerConfig{
		MaxConsecutiveFailures: 2,
		OpenTimeout:            50 * time.Millisecond,
		HalfOpenMaxRequests:    1,
	})

	failing := func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	}

	_, _ = cb.Execute(context.Background(), failing)
	_, _ = cb.Execute(context.Background(), failing)

	require.Equal(t, StateOpen, cb.State())
	require.False(t, cb.Allow())

	_, err := cb.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return "should not run", nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerClosedAllowsCalls(t *testing.T) {
	cb := NewCircuitBreaker("healthy-bridge", DefaultBreakerConfig())
	require.True(t, cb.Allow())

	result, err := cb.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, result)
}

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultRetryConfig(), func() error {
		return errors.New("always fails")
	})
	require.Error(t, err)
}
