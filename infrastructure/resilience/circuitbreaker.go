// Package resilience provides fault tolerance primitives backed by
// github.com/sony/gobreaker/v2 (circuit breaking) and
// github.com/cenkalti/backoff/v4 (retry with exponential backoff).
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State mirrors gobreaker's circuit state, renamed to keep the public
// surface of this package independent of the underlying library.
type State int

const (
	StateClosed State = State(gobreaker.StateClosed)
	StateOpen   State = State(gobreaker.StateOpen)
	StateHalfOpen State = State(gobreaker.StateHalfOpen)
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute when the breaker is open.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// BreakerConfig configures a per-adapter circuit breaker.
type BreakerConfig struct {
	// MaxConsecutiveFailures before the breaker opens.
	MaxConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests bounds concurrent probes in half-open state.
	HalfOpenMaxRequests uint32
	OnStateChange       func(name string, from, to State)
}

// DefaultBreakerConfig returns sensible defaults for a bridge adapter.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxConsecutiveFailures: 5,
		OpenTimeout:            30 * time.Second,
		HalfOpenMaxRequests:    1,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker[any] with an Execute(ctx, fn)
// signature tailored to this engine's adapter calls.
type CircuitBreaker struct {
	name string
	gb   *gobreaker.CircuitBreaker[any]
}

// NewCircuitBreaker creates a named circuit breaker, typically one per
// bridge adapter so a failing bridge does not get retried this tick.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests == 0 {
		cfg.HalfOpenMaxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxConsecutiveFailures
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(n string, from, to gobreaker.State) {
			cfg.OnStateChange(n, State(from), State(to))
		}
	}

	return &CircuitBreaker{
		name: name,
		gb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State reports the current breaker state.
func (cb *CircuitBreaker) State() State {
	return State(cb.gb.State())
}

// Allow reports whether a call would currently be permitted, without
// actually making one. Adapter selection uses this to skip a tripped
// bridge preference before attempting a quote call (spec §4.3 step 1-2).
func (cb *CircuitBreaker) Allow() bool {
	return cb.State() != StateOpen
}

// Execute runs fn through the breaker. When the breaker is open, fn is
// never invoked and ErrCircuitOpen is returned immediately.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	result, err := cb.gb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
		return nil, ErrCircuitOpen
	}
	return result, err
}
