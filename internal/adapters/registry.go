package adapters

import (
	"fmt"
	"sync"

	"github.com/everclearorg/mark-sub000/infrastructure/resilience"
)

// Registry is a name -> adapter mapping (spec §2's "Bridge Adapter
// Registry"), with one circuit breaker per registered adapter so a bridge
// that keeps failing trips its own breaker and gets skipped by Adapter
// Selection before it is even called again (spec §4.3, domain-stack
// wiring in SPEC_FULL.md §2.2).
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]BridgeAdapter
	breakers map[string]*resilience.CircuitBreaker
	breakerCfg resilience.BreakerConfig
}

// NewRegistry constructs an empty Registry. breakerCfg is applied to every
// adapter registered; pass resilience.DefaultBreakerConfig() for sane
// defaults.
func NewRegistry(breakerCfg resilience.BreakerConfig) *Registry {
	return &Registry{
		adapters:   make(map[string]BridgeAdapter),
		breakers:   make(map[string]*resilience.CircuitBreaker),
		breakerCfg: breakerCfg,
	}
}

// Register adds an adapter under its own Type() name.
func (r *Registry) Register(a BridgeAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Type()
	r.adapters[name] = a
	r.breakers[name] = resilience.NewCircuitBreaker(name, r.breakerCfg)
}

// Resolve returns the adapter registered under name, and whether it
// exists. Spec §4.3 step 1: "If absent, log warn and continue to next
// preference" — callers are expected to treat a false ok as non-fatal.
func (r *Registry) Resolve(name string) (BridgeAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Allow reports whether name's circuit breaker currently permits a call.
// Unknown adapters report false.
func (r *Registry) Allow(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.breakers[name]
	if !ok {
		return false
	}
	return cb.Allow()
}

// Breaker returns the circuit breaker registered for name, and whether one
// exists. It never registers anything; only Register creates breakers.
func (r *Registry) Breaker(name string) (*resilience.CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Names returns every registered adapter name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	return names
}

// ValidateKnown checks that every name in names is registered, returning
// one aggregated error describing every unknown bridge (spec §7's
// "unknown bridge name in a route preference" configuration error).
func (r *Registry) ValidateKnown(names []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var problems []string
	for _, n := range names {
		if _, ok := r.adapters[n]; !ok {
			problems = append(problems, fmt.Sprintf("unknown bridge adapter %q", n))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	err := fmt.Errorf("adapters: %d unknown bridge(s) referenced by route policy", len(problems))
	for _, p := range problems {
		err = fmt.Errorf("%w; %s", err, p)
	}
	return err
}
