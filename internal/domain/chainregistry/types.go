// Package chainregistry holds the read-only, per-chain asset catalog and
// provider configuration the rest of the engine consults (spec §2.2, §3).
package chainregistry

// Asset describes one on-chain token listing. The same logical token has
// the same TickerHash on every chain it is listed on (spec §3).
type Asset struct {
	Address          string
	Symbol           string
	Decimals         int
	TickerHash       string
	IsNative         bool
	BalanceThreshold string // canonical 18-decimal string; "0" if unset
}

// Chain describes one chain's static deployment and provider config.
type Chain struct {
	ChainID   int64
	Name      string
	Providers []string
	Assets    []Asset
	// OwnerAddress is the rebalancer's own address on this chain. Kept
	// per-chain since some chains use different address encodings
	// (spec §4.1).
	OwnerAddress string
}

// Registry is the read-only chain/asset catalog consulted by the Balance
// Oracle and Route Evaluator.
type Registry struct {
	chains map[int64]Chain
}

// NewRegistry builds a Registry from a list of chains. Returns an error if
// a chain id repeats; asset addresses are not checked for duplicates.
func NewRegistry(chains []Chain) (*Registry, error) {
	m := make(map[int64]Chain, len(chains))
	for _, c := range chains {
		if _, exists := m[c.ChainID]; exists {
			return nil, duplicateChainError(c.ChainID)
		}
		m[c.ChainID] = c
	}
	return &Registry{chains: m}, nil
}

// Chain returns the chain config for id, and whether it exists.
func (r *Registry) Chain(id int64) (Chain, bool) {
	c, ok := r.chains[id]
	return c, ok
}

// Asset returns the asset descriptor for tickerHash on chain id.
func (r *Registry) Asset(chainID int64, tickerHash string) (Asset, bool) {
	c, ok := r.chains[chainID]
	if !ok {
		return Asset{}, false
	}
	for _, a := range c.Assets {
		if a.TickerHash == tickerHash {
			return a, true
		}
	}
	return Asset{}, false
}

// AssetByAddress returns the asset descriptor for a native address on a
// given chain.
func (r *Registry) AssetByAddress(chainID int64, address string) (Asset, bool) {
	c, ok := r.chains[chainID]
	if !ok {
		return Asset{}, false
	}
	for _, a := range c.Assets {
		if a.Address == address {
			return a, true
		}
	}
	return Asset{}, false
}

// ChainIDs returns every configured chain id.
func (r *Registry) ChainIDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	return ids
}

type duplicateChainError int64

func (e duplicateChainError) Error() string {
	return "chainregistry: duplicate chain id configured"
}
