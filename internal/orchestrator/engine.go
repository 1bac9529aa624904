package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/everclearorg/mark-sub000/infrastructure/logging"
	"github.com/everclearorg/mark-sub000/internal/balances"
	"github.com/everclearorg/mark-sub000/internal/domain/chainregistry"
	"github.com/everclearorg/mark-sub000/internal/domain/policy"
	"github.com/everclearorg/mark-sub000/internal/pause"
)

// CallbackEngine is the subset of internal/callback.Engine the
// orchestrator tick depends on.
type CallbackEngine interface {
	Tick(ctx context.Context) error
}

// Sweeper is the subset of internal/sweeper.Sweeper the orchestrator tick
// depends on.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Oracle is the subset of internal/balances.Oracle the orchestrator tick
// depends on.
type Oracle interface {
	Snapshot(ctx context.Context) balances.Snapshot
}

// Metrics is the subset of internal/metrics.Metrics the orchestrator tick
// records against. Left nil, no metric is recorded.
type Metrics interface {
	RecordTick(service, outcome string, duration time.Duration)
	RecordRouteSkipped(service, reason string)
	RecordOperationOpened(service, bridge string)
}

// EngineConfig wires one full tick's collaborators (spec §4, §5).
type EngineConfig struct {
	Pauses    *pause.Registry
	Sweeper   Sweeper
	Callbacks CallbackEngine
	Balances  Oracle
	Policy    *policy.Store
	Registry  *chainregistry.Registry
	Selector  *Selector
	// TickTimeout bounds one full tick; zero disables the bound (not
	// recommended outside tests).
	TickTimeout time.Duration
	Logger      *logging.Logger
	Metrics     Metrics
	// ServiceName labels recorded metrics; defaults to "rebalancer".
	ServiceName string
}

// Engine runs one full orchestrator tick: sweep, callback advancement,
// and (unless rebalancing is paused) route evaluation and adapter
// selection (spec §4, §5).
type Engine struct {
	cfg EngineConfig
}

// New builds an Engine from cfg.
func New(cfg EngineConfig) *Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rebalancer"
	}
	return &Engine{cfg: cfg}
}

// Tick runs exactly one orchestrator tick. Per spec §9 open question 1,
// the rebalance pause gates only new-operation issuance; the Callback
// Engine and sweeper always run so operations already in flight keep
// making progress even while new issuance is paused.
func (e *Engine) Tick(ctx context.Context) error {
	start := time.Now()
	var tickErr error
	defer func() {
		outcome := "ok"
		if tickErr != nil {
			outcome = "error"
		}
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.RecordTick(e.cfg.ServiceName, outcome, time.Since(start))
		}
	}()

	if e.cfg.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TickTimeout)
		defer cancel()
	}

	if e.cfg.Sweeper != nil {
		if err := e.cfg.Sweeper.Sweep(ctx); err != nil {
			e.errorf(ctx, "sweep failed: %v", err)
		}
	}

	if e.cfg.Callbacks != nil {
		if err := e.cfg.Callbacks.Tick(ctx); err != nil {
			e.errorf(ctx, "callback engine tick failed: %v", err)
		}
	}

	paused, err := e.cfg.Pauses.RebalancePaused(ctx)
	if err != nil {
		tickErr = fmt.Errorf("orchestrator: checking rebalance pause: %w", err)
		return tickErr
	}
	if paused {
		e.infof(ctx, "rebalance gate paused, skipping route evaluation this tick")
		return nil
	}

	snapshot := e.cfg.Balances.Snapshot(ctx)
	tickErr = e.evaluateRoutes(ctx, snapshot)
	return tickErr
}

// evaluateRoutes iterates origin chains concurrently and, within one
// chain, routes sequentially (spec §5's ordering guarantee: balance
// accounting stays consistent with submission order per origin chain).
func (e *Engine) evaluateRoutes(ctx context.Context, snapshot balances.Snapshot) error {
	byOrigin := e.cfg.Policy.RoutesByOrigin()

	var wg sync.WaitGroup
	for _, routes := range byOrigin {
		wg.Add(1)
		go func(routes []policy.Route) {
			defer wg.Done()
			for _, route := range routes {
				select {
				case <-ctx.Done():
					return
				default:
				}
				e.evaluateOneRoute(ctx, snapshot, route)
			}
		}(routes)
	}
	wg.Wait()
	return nil
}

func (e *Engine) evaluateOneRoute(ctx context.Context, snapshot balances.Snapshot, route policy.Route) {
	decision, err := EvaluateRoute(snapshot, e.cfg.Registry, route)
	if err != nil {
		e.errorf(ctx, "evaluating route %d->%d: %v", route.Origin, route.Destination, err)
		return
	}
	if !decision.Proceed() {
		e.infof(ctx, "route %d->%d ticker %s skipped: %s", route.Origin, route.Destination, route.TickerHash, decision.Skip)
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.RecordRouteSkipped(e.cfg.ServiceName, string(decision.Skip))
		}
		return
	}

	op, err := e.cfg.Selector.Select(ctx, decision)
	if err != nil {
		e.errorf(ctx, "route %d->%d aborted: %v", route.Origin, route.Destination, err)
		return
	}
	if op == nil {
		e.infof(ctx, "route %d->%d ticker %s: every bridge preference exhausted this tick", route.Origin, route.Destination, route.TickerHash)
		return
	}
	e.infof(ctx, "route %d->%d ticker %s: opened operation %s via %s", route.Origin, route.Destination, route.TickerHash, op.ID, op.Bridge)
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.RecordOperationOpened(e.cfg.ServiceName, op.Bridge)
	}
}

func (e *Engine) infof(ctx context.Context, msg string, args ...any) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.WithContext(ctx).Infof(msg, args...)
}

func (e *Engine) errorf(ctx context.Context, msg string, args ...any) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.WithContext(ctx).Errorf(msg, args...)
}
