// Package balances implements the Balance Oracle (spec.md §4.1): it turns
// the chain registry's asset catalog into a tickerHash -> chainId -> amount18
// snapshot once per orchestrator tick.
package balances

import (
	"context"
	"math/big"
	"sync"

	"golang.org/x/time/rate"

	"github.com/everclearorg/mark-sub000/infrastructure/decimal"
	"github.com/everclearorg/mark-sub000/infrastructure/logging"
	"github.com/everclearorg/mark-sub000/internal/domain/chainregistry"
)

// ChainReader reads on-chain balances for one chain. Production
// implementations wrap an RPC client; out of scope per spec §1.
type ChainReader interface {
	NativeBalance(ctx context.Context, owner string) (*big.Int, error)
	TokenBalance(ctx context.Context, tokenAddress, owner string) (*big.Int, error)
}

// Snapshot is the tickerHash -> chainId -> canonical-18-decimal balance map
// the Route Evaluator reads from.
type Snapshot map[string]map[int64]*big.Int

// At returns the balance for tickerHash on chainID, or nil if absent.
func (s Snapshot) At(tickerHash string, chainID int64) *big.Int {
	byChain, ok := s[tickerHash]
	if !ok {
		return nil
	}
	return byChain[chainID]
}

func (s Snapshot) add(tickerHash string, chainID int64, amount *big.Int) {
	byChain, ok := s[tickerHash]
	if !ok {
		byChain = make(map[int64]*big.Int)
		s[tickerHash] = byChain
	}
	existing, ok := byChain[chainID]
	if !ok {
		byChain[chainID] = new(big.Int).Set(amount)
		return
	}
	existing.Add(existing, amount)
}

// Config wires per-chain readers and owner addresses into an Oracle.
type Config struct {
	Registry *chainregistry.Registry
	Readers  map[int64]ChainReader
	// Owners holds the rebalancer's own address per chain, since some
	// chains use different address encodings (spec §4.1).
	Owners map[int64]string
	// RequestsPerSecond bounds the read rate per chain reader; zero uses
	// a conservative default rather than disabling the limiter.
	RequestsPerSecond float64
	Burst             int
}

// Oracle produces balance snapshots by fanning out reads across chains and
// assets, rate-limited per chain.
type Oracle struct {
	registry *chainregistry.Registry
	readers  map[int64]ChainReader
	owners   map[int64]string
	limiters map[int64]*rate.Limiter
	logger   *logging.Logger
}

// New builds an Oracle from cfg. Every chain in the registry gets its own
// rate limiter so a slow or abusive chain cannot starve the others.
func New(cfg Config, logger *logging.Logger) *Oracle {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps * 2)
	}

	limiters := make(map[int64]*rate.Limiter, len(cfg.Owners))
	for chainID := range cfg.Owners {
		limiters[chainID] = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return &Oracle{
		registry: cfg.Registry,
		readers:  cfg.Readers,
		owners:   cfg.Owners,
		limiters: limiters,
		logger:   logger,
	}
}

// Snapshot reads every (chain, asset) pair in the registry for which an
// owner address and reader are configured, and aggregates across assets
// sharing a tickerHash by summing per chain. A failed read contributes
// zero rather than failing the tick (spec §4.1): no retries happen here,
// the read path is I/O bound and the tick is short-lived.
func (o *Oracle) Snapshot(ctx context.Context) Snapshot {
	snap := make(Snapshot)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, chainID := range o.registry.ChainIDs() {
		chain, ok := o.registry.Chain(chainID)
		if !ok {
			continue
		}
		owner, ok := o.owners[chainID]
		if !ok {
			o.logf(ctx, chainID, "", "no owner address configured for chain, skipping")
			continue
		}
		reader, ok := o.readers[chainID]
		if !ok {
			o.logf(ctx, chainID, "", "no chain reader configured for chain, skipping")
			continue
		}
		limiter := o.limiters[chainID]

		for _, asset := range chain.Assets {
			wg.Add(1)
			go func(chainID int64, owner string, reader ChainReader, limiter *rate.Limiter, asset chainregistry.Asset) {
				defer wg.Done()
				amount18 := o.readOne(ctx, chainID, owner, reader, limiter, asset)
				mu.Lock()
				snap.add(asset.TickerHash, chainID, amount18)
				mu.Unlock()
			}(chainID, owner, reader, limiter, asset)
		}
	}

	wg.Wait()
	return snap
}

// readOne queries a single (chain, asset) balance and converts it to
// canonical 18-decimal, surfacing zero on any failure.
func (o *Oracle) readOne(ctx context.Context, chainID int64, owner string, reader ChainReader, limiter *rate.Limiter, asset chainregistry.Asset) *big.Int {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			o.logf(ctx, chainID, asset.TickerHash, "rate limiter wait cancelled: %v", err)
			return big.NewInt(0)
		}
	}

	var raw *big.Int
	var err error
	if asset.IsNative {
		raw, err = reader.NativeBalance(ctx, owner)
	} else {
		raw, err = reader.TokenBalance(ctx, asset.Address, owner)
	}
	if err != nil {
		o.logf(ctx, chainID, asset.TickerHash, "balance read failed, reporting zero: %v", err)
		return big.NewInt(0)
	}

	canonical, err := decimal.ToCanonical(raw, asset.Decimals)
	if err != nil {
		o.logf(ctx, chainID, asset.TickerHash, "balance conversion failed, reporting zero: %v", err)
		return big.NewInt(0)
	}
	return canonical
}

func (o *Oracle) logf(ctx context.Context, chainID int64, tickerHash, msg string, args ...any) {
	if o.logger == nil {
		return
	}
	entry := o.logger.WithContext(ctx).WithField("chain_id", chainID)
	if tickerHash != "" {
		entry = entry.WithField("ticker_hash", tickerHash)
	}
	entry.Warnf(msg, args...)
}
