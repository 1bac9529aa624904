package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/everclearorg/mark-sub000/infrastructure/decimal"
	"github.com/everclearorg/mark-sub000/infrastructure/logging"
	"github.com/everclearorg/mark-sub000/internal/adapters"
	"github.com/everclearorg/mark-sub000/internal/chainservice"
	"github.com/everclearorg/mark-sub000/internal/domain/policy"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// OperationStore is the subset of the Operation Store Adapter Selection
// writes to.
type OperationStore interface {
	CreateOperation(ctx context.Context, op rebalance.Operation) (rebalance.Operation, error)
}

// SelectorConfig wires Adapter Selection's collaborators (spec §4.3).
type SelectorConfig struct {
	Adapters *adapters.Registry
	Chains   chainservice.ChainService
	Store    OperationStore
	// Owners holds the rebalancer's own sending address per chain, keyed
	// the same way as the Balance Oracle's owner map.
	Owners map[int64]string
	Logger *logging.Logger
}

// Selector runs the Adapter Selection (bridge fallback) loop for one
// route per tick (spec §4.3).
type Selector struct {
	cfg SelectorConfig
}

// NewSelector builds a Selector from cfg.
func NewSelector(cfg SelectorConfig) *Selector {
	return &Selector{cfg: cfg}
}

// Select runs the fallback loop over decision.Route.Preferences in order,
// returning the created operation for the first bridge that succeeds, or
// nil if every preference was exhausted without a route being taken this
// tick. A non-nil error means the route was aborted outright (spec §4.3
// edge case: a failed Approval/Wrap/Unwrap/Mint receipt) and must not be
// retried with a different adapter this tick.
func (s *Selector) Select(ctx context.Context, decision RouteDecision) (*rebalance.Operation, error) {
	route := decision.Route
	adapterRoute := adapters.Route{
		Origin:      route.Origin,
		Destination: route.Destination,
		Asset:       decision.OriginAsset.Address,
		TickerHash:  route.TickerHash,
	}

	for i, name := range route.Preferences {
		slippageBps := route.Slippages[i]

		adapter, ok := s.cfg.Adapters.Resolve(name)
		if !ok {
			s.warnf(ctx, "bridge %q is not registered, skipping preference", name)
			continue
		}
		if !s.cfg.Adapters.Allow(name) {
			s.warnf(ctx, "bridge %q circuit breaker is open, skipping preference", name)
			continue
		}

		received, err := s.quote(ctx, name, adapter, decision.NativeAmount, adapterRoute)
		if err != nil {
			s.errorf(ctx, "bridge %q quote failed: %v", name, err)
			continue
		}

		minAcceptable := decimal.MinAcceptable(decision.NativeAmount, slippageBps)
		if received.Cmp(minAcceptable) < 0 {
			s.warnf(ctx, "bridge %q quote %s below minimum acceptable %s for route %d->%d",
				name, decimal.String(received), decimal.String(minAcceptable), route.Origin, route.Destination)
			continue
		}

		steps, err := s.send(ctx, name, adapter, route, decision.NativeAmount, adapterRoute)
		if err != nil {
			s.errorf(ctx, "bridge %q send failed: %v", name, err)
			continue
		}

		op, err := s.executeSteps(ctx, route, decision, name, i, steps)
		if err != nil {
			// An Approval/Wrap/Unwrap/Mint failure aborts the whole route
			// this tick; the next tick re-evaluates from fresh balances.
			return nil, err
		}
		return op, nil
	}

	return nil, nil
}

func (s *Selector) quote(ctx context.Context, name string, adapter adapters.BridgeAdapter, amount *big.Int, route adapters.Route) (*big.Int, error) {
	result, err := s.callThroughBreaker(ctx, name, func(ctx context.Context) (any, error) {
		return adapter.GetReceivedAmount(ctx, amount, route)
	})
	if err != nil {
		return nil, err
	}
	return result.(*big.Int), nil
}

func (s *Selector) send(ctx context.Context, name string, adapter adapters.BridgeAdapter, route policy.Route, amount *big.Int, adapterRoute adapters.Route) ([]adapters.SendStep, error) {
	result, err := s.callThroughBreaker(ctx, name, func(ctx context.Context) (any, error) {
		return adapter.Send(ctx, s.cfg.Owners[route.Origin], route.Recipient, amount, adapterRoute)
	})
	if err != nil {
		return nil, err
	}
	return result.([]adapters.SendStep), nil
}

func (s *Selector) callThroughBreaker(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	cb, ok := s.cfg.Adapters.Breaker(name)
	if !ok {
		return fn(ctx)
	}
	return cb.Execute(ctx, fn)
}

// executeSteps submits every SendStep through ChainService in order,
// aborting on the first non-Rebalance step whose receipt did not succeed
// (spec §4.3 edge case). The operation row is written once, after every
// step has been submitted.
func (s *Selector) executeSteps(ctx context.Context, route policy.Route, decision RouteDecision, bridgeName string, preferenceIdx int, steps []adapters.SendStep) (*rebalance.Operation, error) {
	receipts := make(map[int64]rebalance.Receipt, len(steps))
	canonicalAmount := decision.CanonicalAmount
	status := rebalance.OperationPending

	for _, step := range steps {
		sender, ok := s.cfg.Owners[step.Transaction.ChainID]
		if !ok {
			return nil, fmt.Errorf("orchestrator: no owner address configured for chain %d", step.Transaction.ChainID)
		}

		receipt, err := s.cfg.Chains.SubmitAndMonitor(ctx, step.Transaction.ChainID, chainservice.TxRequest{
			To:      step.Transaction.To,
			Data:    step.Transaction.Data,
			Value:   step.Transaction.Value,
			From:    sender,
			FuncSig: step.Transaction.FuncSig,
		})
		if err != nil {
			return nil, fmt.Errorf("orchestrator: submitting %s step on chain %d: %w", step.Memo, step.Transaction.ChainID, err)
		}
		receipts[step.Transaction.ChainID] = receipt

		if step.Memo != adapters.MemoRebalance {
			if !receipt.Succeeded() {
				return nil, fmt.Errorf("orchestrator: %s step on chain %d failed, aborting route %d->%d this tick",
					step.Memo, step.Transaction.ChainID, route.Origin, route.Destination)
			}
			continue
		}

		if !receipt.Succeeded() {
			status = rebalance.OperationFailed
		}
		if step.EffectiveAmount != nil {
			if converted, err := decimal.ToCanonical(step.EffectiveAmount, decision.OriginAsset.Decimals); err == nil {
				canonicalAmount = converted
			}
		}
	}

	created, err := s.cfg.Store.CreateOperation(ctx, rebalance.Operation{
		OriginChainID:      route.Origin,
		DestinationChainID: route.Destination,
		TickerHash:         route.TickerHash,
		Amount:             canonicalAmount,
		Slippage:           route.Slippages[preferenceIdx],
		Bridge:             bridgeName,
		Recipient:          route.Recipient,
		Transactions:       receipts,
		Status:             status,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Selector) warnf(ctx context.Context, msg string, args ...any) {
	if s.cfg.Logger == nil {
		return
	}
	s.cfg.Logger.WithContext(ctx).Warnf(msg, args...)
}

func (s *Selector) errorf(ctx context.Context, msg string, args ...any) {
	if s.cfg.Logger == nil {
		return
	}
	s.cfg.Logger.WithContext(ctx).Errorf(msg, args...)
}
