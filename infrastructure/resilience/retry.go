package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures bounded exponential-backoff retry for Retry.
// Retry is a standalone helper: the Operation Store does not call it, and
// adapter calls are never retried internally (spec §4.4).
type RetryConfig struct {
	MaxElapsedTime      time.Duration
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
}

// DefaultRetryConfig returns sensible defaults for a store call.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxElapsedTime:  2 * time.Second,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		Multiplier:      2.0,
	}
}

// Retry executes fn with exponential backoff until it succeeds, the
// context is cancelled, or cfg.MaxElapsedTime elapses.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		b.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		b.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return backoff.Retry(fn, backoff.WithContext(b, ctx))
}
