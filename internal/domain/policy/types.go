// Package policy holds the immutable Route Policy Store (spec §2.1, §3):
// per-(origin,destination,asset) rebalancing rules consulted by the Route
// Evaluator every tick. Read-only at runtime once loaded.
package policy

import (
	"fmt"
	"math/big"

	"github.com/everclearorg/mark-sub000/infrastructure/decimal"
)

// Route is one immutable origin/destination/asset rebalancing rule.
type Route struct {
	Origin      int64
	Destination int64
	Asset       string // canonical address on Origin
	TickerHash  string

	Maximum *big.Int // canonical 18-decimal upper bound on origin inventory
	Reserve *big.Int // canonical 18-decimal floor to retain on origin; nil if unset

	Preferences []string // ordered bridge names to try
	Slippages   []int64  // ordered bps tolerances, one per preference

	Recipient string // destination-chain recipient address
}

// Validate enforces the invariants from spec §3: len(Slippages) ==
// len(Preferences); Reserve < Maximum when both are set.
func (r Route) Validate() error {
	if len(r.Preferences) != len(r.Slippages) {
		return fmt.Errorf("policy: route %s->%s asset %s: len(preferences)=%d != len(slippages)=%d",
			routeChainPair(r), r.Asset, r.TickerHash, len(r.Preferences), len(r.Slippages))
	}
	if len(r.Preferences) == 0 {
		return fmt.Errorf("policy: route %s: no bridge preferences configured", routeChainPair(r))
	}
	if r.Maximum == nil {
		return fmt.Errorf("policy: route %s: maximum is required", routeChainPair(r))
	}
	if r.Reserve != nil && r.Reserve.Cmp(r.Maximum) >= 0 {
		return fmt.Errorf("policy: route %s: reserve (%s) must be < maximum (%s)",
			routeChainPair(r), decimal.String(r.Reserve), decimal.String(r.Maximum))
	}
	return nil
}

func routeChainPair(r Route) string {
	return fmt.Sprintf("%d->%d", r.Origin, r.Destination)
}

// Store is the read-only, in-memory Route Policy Store.
type Store struct {
	routes []Route
}

// NewStore validates and wraps routes. Fails fast (spec §7: "Configuration
// error... Fatal at startup; fail-fast with a single aggregated error").
func NewStore(routes []Route) (*Store, error) {
	var problems []error
	for _, r := range routes {
		if err := r.Validate(); err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) > 0 {
		return nil, aggregateValidation(problems)
	}
	return &Store{routes: routes}, nil
}

// Routes returns every configured route.
func (s *Store) Routes() []Route {
	return s.routes
}

// RoutesByOrigin groups routes by origin chain id, preserving
// configuration order within each origin — the evaluation order spec §5
// requires (sequential per origin chain).
func (s *Store) RoutesByOrigin() map[int64][]Route {
	out := make(map[int64][]Route)
	for _, r := range s.routes {
		out[r.Origin] = append(out[r.Origin], r)
	}
	return out
}

func aggregateValidation(problems []error) error {
	msg := "policy: invalid route configuration:"
	for _, p := range problems {
		msg += "\n  - " + p.Error()
	}
	return fmt.Errorf("%s", msg)
}
