// Package pause wraps the Operation Store's durable pause flags (spec
// §2's Pause Registry) with the three named gates the orchestrator and
// admin surface consume: rebalance, on-demand, and purchase.
package pause

import (
	"context"

	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
)

// Store is the subset of *postgres.Store the Pause Registry depends on.
type Store interface {
	IsPaused(ctx context.Context, key postgres.PauseKey) (bool, error)
	SetPaused(ctx context.Context, key postgres.PauseKey, paused bool) error
}

// Registry reads and writes the three pause gates. It holds no state of
// its own beyond the store reference: every call round-trips to
// Postgres so a pause set by one process is observed by every other
// process on its next check, per spec §5's "Pause Registry is checked
// at the top of the tick".
type Registry struct {
	store Store
}

// New constructs a Registry backed by store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// RebalancePaused reports whether new rebalance operations may be
// issued this tick. Spec §9's resolved open question: a true here gates
// only new-operation issuance, never the Callback Engine.
func (r *Registry) RebalancePaused(ctx context.Context) (bool, error) {
	return r.store.IsPaused(ctx, postgres.PauseRebalance)
}

// OnDemandPaused reports whether on-demand (invoice-triggered) earmark
// creation is paused.
func (r *Registry) OnDemandPaused(ctx context.Context) (bool, error) {
	return r.store.IsPaused(ctx, postgres.PauseOnDemand)
}

// PurchasePaused reports whether purchase-chain fills are paused.
func (r *Registry) PurchasePaused(ctx context.Context) (bool, error) {
	return r.store.IsPaused(ctx, postgres.PausePurchase)
}

// SetRebalancePaused sets the rebalance gate (admin action).
func (r *Registry) SetRebalancePaused(ctx context.Context, paused bool) error {
	return r.store.SetPaused(ctx, postgres.PauseRebalance, paused)
}

// SetOnDemandPaused sets the on-demand gate (admin action).
func (r *Registry) SetOnDemandPaused(ctx context.Context, paused bool) error {
	return r.store.SetPaused(ctx, postgres.PauseOnDemand, paused)
}

// SetPurchasePaused sets the purchase gate (admin action).
func (r *Registry) SetPurchasePaused(ctx context.Context, paused bool) error {
	return r.store.SetPaused(ctx, postgres.PausePurchase, paused)
}
