// Package orchestrator implements the Route Evaluator, Adapter Selection,
// and the per-tick engine that composes them with the Balance Oracle and
// Pause Registry (spec.md §4.2–§4.4, §5).
package orchestrator

import (
	"fmt"
	"math/big"

	"github.com/everclearorg/mark-sub000/infrastructure/decimal"
	"github.com/everclearorg/mark-sub000/internal/balances"
	"github.com/everclearorg/mark-sub000/internal/domain/chainregistry"
	"github.com/everclearorg/mark-sub000/internal/domain/policy"
)

// SkipReason names why a route was not acted on this tick (spec §4.2).
type SkipReason string

const (
	SkipNone                     SkipReason = ""
	SkipNoBalances               SkipReason = "no balances"
	SkipAtOrBelowMaximum         SkipReason = "at or below maximum"
	SkipReserveConsumesInventory SkipReason = "reserve consumes all inventory"
)

// RouteDecision is the Route Evaluator's output for one route: either a
// Skip reason, or an amount ready for Adapter Selection.
type RouteDecision struct {
	Route policy.Route

	// CanonicalAmount is amountToBridge in 18-decimal canonical form,
	// before the route-boundary conversion (spec §4.2 step 3-4).
	CanonicalAmount *big.Int
	// NativeAmount is CanonicalAmount converted to the origin asset's
	// native decimals; this is what adapters see.
	NativeAmount *big.Int
	OriginAsset  chainregistry.Asset

	Skip SkipReason
}

// Proceed reports whether this route should go to Adapter Selection.
func (d RouteDecision) Proceed() bool {
	return d.Skip == SkipNone
}

// EvaluateRoute is a pure function over one balance snapshot, the chain
// registry, and one route (spec §4.2). It never mutates inputs and never
// performs I/O.
func EvaluateRoute(snapshot balances.Snapshot, registry *chainregistry.Registry, route policy.Route) (RouteDecision, error) {
	current := snapshot.At(route.TickerHash, route.Origin)
	if current == nil {
		return RouteDecision{Route: route, Skip: SkipNoBalances}, nil
	}
	if current.Cmp(route.Maximum) <= 0 {
		return RouteDecision{Route: route, Skip: SkipAtOrBelowMaximum}, nil
	}

	reserve := route.Reserve
	if reserve == nil {
		reserve = big.NewInt(0)
	}
	amountToBridge := new(big.Int).Sub(current, reserve)
	if amountToBridge.Sign() <= 0 {
		return RouteDecision{Route: route, Skip: SkipReserveConsumesInventory}, nil
	}

	originAsset, ok := registry.Asset(route.Origin, route.TickerHash)
	if !ok {
		return RouteDecision{}, fmt.Errorf("orchestrator: no asset descriptor for ticker %q on chain %d", route.TickerHash, route.Origin)
	}

	nativeAmount, err := decimal.FromCanonical(amountToBridge, originAsset.Decimals)
	if err != nil {
		return RouteDecision{}, fmt.Errorf("orchestrator: converting route %d->%d amount to native: %w", route.Origin, route.Destination, err)
	}

	return RouteDecision{
		Route:           route,
		CanonicalAmount: amountToBridge,
		NativeAmount:    nativeAmount,
		OriginAsset:     originAsset,
	}, nil
}
