package rebalance

import "math/big"

// BalanceMap is the two-level tickerHash -> chainId -> amount18 mapping
// the Balance Oracle produces once per tick (spec §3).
type BalanceMap map[string]map[int64]*big.Int

// NewBalanceMap returns an empty BalanceMap.
func NewBalanceMap() BalanceMap {
	return make(BalanceMap)
}

// Add accumulates amount into tickerHash/chainID, summing across assets
// that share a ticker hash on the same chain (spec §4.1: "Aggregate across
// assets sharing a tickerHash by summing per chain").
func (b BalanceMap) Add(tickerHash string, chainID int64, amount *big.Int) {
	if amount == nil {
		return
	}
	byChain, ok := b[tickerHash]
	if !ok {
		byChain = make(map[int64]*big.Int)
		b[tickerHash] = byChain
	}
	existing, ok := byChain[chainID]
	if !ok {
		byChain[chainID] = new(big.Int).Set(amount)
		return
	}
	existing.Add(existing, amount)
}

// Get returns the balance for tickerHash on chainID, and whether an entry
// exists at all (as opposed to existing with value zero).
func (b BalanceMap) Get(tickerHash string, chainID int64) (*big.Int, bool) {
	byChain, ok := b[tickerHash]
	if !ok {
		return nil, false
	}
	amount, ok := byChain[chainID]
	return amount, ok
}
