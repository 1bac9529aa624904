// Package callback implements the Callback Engine (spec.md §4.6): on
// every tick, before route evaluation, it advances every non-terminal
// operation through readyOnDestination polling and the destination
// callback, grounded on the teacher's SettlementPoller.tick shape
// (resolve -> record attempt -> retry/dead-letter), adapted from a
// dead-letter withdrawal model to the PENDING/AWAITING_CALLBACK/
// COMPLETED/FAILED lifecycle of spec §4.4.
package callback

import (
	"context"
	"fmt"
	"sync"

	"github.com/everclearorg/mark-sub000/infrastructure/logging"
	"github.com/everclearorg/mark-sub000/internal/adapters"
	"github.com/everclearorg/mark-sub000/internal/chainservice"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// Metrics is the subset of internal/metrics.Metrics the Callback Engine
// records against. Left nil, no metric is recorded.
type Metrics interface {
	RecordCallbackOutcome(service, outcome string)
}

// OperationStore is the subset of the Operation Store the Callback Engine
// reads and writes.
type OperationStore interface {
	ListNonTerminalOperations(ctx context.Context) ([]rebalance.Operation, error)
	TransitionOperation(ctx context.Context, id string, newStatus rebalance.OperationStatus, reason string) error
	AppendReceipt(ctx context.Context, id string, chainID int64, receipt rebalance.Receipt) error
}

// Config wires the Callback Engine's collaborators.
type Config struct {
	Store    OperationStore
	Adapters *adapters.Registry
	Chains   chainservice.ChainService
	// Concurrency bounds how many operations are advanced in parallel
	// within one tick (spec §5: "bounded by a small pool"). Zero uses a
	// conservative default.
	Concurrency int
	Logger      *logging.Logger
	Metrics     Metrics
	// ServiceName labels recorded metrics; defaults to "rebalancer".
	ServiceName string
}

// Engine advances every {PENDING, AWAITING_CALLBACK} operation once per
// tick. A PENDING operation whose destination is ready can move through
// AWAITING_CALLBACK to COMPLETED (or FAILED) within that same tick.
type Engine struct {
	cfg Config
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rebalancer"
	}
	return &Engine{cfg: cfg}
}

// Tick runs one pass over every non-terminal operation (spec §4.6).
// Errors advancing one operation are logged and do not stop the others;
// the tick as a whole never fails because of a single bad operation.
func (e *Engine) Tick(ctx context.Context) error {
	ops, err := e.cfg.Store.ListNonTerminalOperations(ctx)
	if err != nil {
		return fmt.Errorf("callback: listing non-terminal operations: %w", err)
	}

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, op := range ops {
		op := op
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := e.advance(ctx, op); err != nil {
				e.errorf(ctx, "advancing operation %s: %v", op.ID, err)
				e.recordOutcome("error")
			}
		}()
	}
	wg.Wait()
	return nil
}

// advance runs spec §4.6 steps 2-5 for a single operation.
func (e *Engine) advance(ctx context.Context, op rebalance.Operation) error {
	adapter, ok := e.cfg.Adapters.Resolve(op.Bridge)
	if !ok {
		return fmt.Errorf("bridge %q is not registered", op.Bridge)
	}

	storedReceipt, ok := op.Transactions[op.OriginChainID]
	if !ok {
		return fmt.Errorf("operation %s has no origin receipt on chain %d", op.ID, op.OriginChainID)
	}

	route := adapters.Route{
		Origin:      op.OriginChainID,
		Destination: op.DestinationChainID,
		TickerHash:  op.TickerHash,
	}

	ready, err := adapter.ReadyOnDestination(ctx, op.Amount, route, storedReceipt)
	if err != nil {
		if adapters.IsPermanent(err) {
			return e.fail(ctx, op.ID, fmt.Sprintf("readyOnDestination reported a permanent error: %v", err))
		}
		return fmt.Errorf("readyOnDestination: %w", err)
	}
	if !ready {
		return nil
	}

	if op.Status == rebalance.OperationPending {
		if err := e.cfg.Store.TransitionOperation(ctx, op.ID, rebalance.OperationAwaitingCallback, "destination ready, awaiting callback"); err != nil {
			return fmt.Errorf("promoting to AWAITING_CALLBACK: %w", err)
		}
	}

	tx, err := adapter.DestinationCallback(ctx, route, storedReceipt)
	if err != nil {
		if adapters.IsPermanent(err) {
			return e.fail(ctx, op.ID, fmt.Sprintf("destinationCallback reported a permanent error: %v", err))
		}
		// Transient: stay AWAITING_CALLBACK until the next tick retries.
		return fmt.Errorf("destinationCallback: %w", err)
	}

	if tx == nil {
		return e.complete(ctx, op.ID, "destination callback reported no further action needed")
	}

	receipt, err := e.cfg.Chains.SubmitAndMonitor(ctx, tx.ChainID, chainservice.TxRequest{
		To:      tx.To,
		Data:    tx.Data,
		Value:   tx.Value,
		FuncSig: tx.FuncSig,
	})
	if err != nil {
		// Transient failure: leave the operation in AWAITING_CALLBACK for
		// the next tick to retry the callback submission.
		return fmt.Errorf("submitting destination callback: %w", err)
	}

	if err := e.cfg.Store.AppendReceipt(ctx, op.ID, tx.ChainID, receipt); err != nil {
		return fmt.Errorf("appending destination receipt: %w", err)
	}

	if !receipt.Succeeded() {
		// A failed-but-observed destination receipt stays AWAITING_CALLBACK
		// until the sweeper's TTL; only an adapter-signaled permanent error
		// promotes directly to FAILED (spec §9 open question 3).
		return nil
	}

	return e.complete(ctx, op.ID, "destination callback transaction confirmed")
}

func (e *Engine) complete(ctx context.Context, id, reason string) error {
	if err := e.cfg.Store.TransitionOperation(ctx, id, rebalance.OperationCompleted, reason); err != nil {
		return err
	}
	e.recordOutcome("completed")
	return nil
}

func (e *Engine) fail(ctx context.Context, id, reason string) error {
	if err := e.cfg.Store.TransitionOperation(ctx, id, rebalance.OperationFailed, reason); err != nil {
		return err
	}
	e.recordOutcome("failed")
	return nil
}

func (e *Engine) recordOutcome(outcome string) {
	if e.cfg.Metrics == nil {
		return
	}
	e.cfg.Metrics.RecordCallbackOutcome(e.cfg.ServiceName, outcome)
}

func (e *Engine) errorf(ctx context.Context, msg string, args ...any) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.WithContext(ctx).Errorf(msg, args...)
}
