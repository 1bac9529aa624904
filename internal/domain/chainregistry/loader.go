package chainregistry

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LoadFile parses a JSON chain catalog into a validated Registry. The
// shape mirrors internal/domain/policy's loader (spec §2.2's route
// policy), walked with gjson rather than a strict struct decode so one
// malformed chain entry does not abort the whole file:
//
//	[
//	  {
//	    "chainId": 1, "name": "ethereum", "providers": ["https://..."],
//	    "ownerAddress": "0xmark...",
//	    "assets": [
//	      {"address": "0x...", "symbol": "USDC", "decimals": 6,
//	       "tickerHash": "usdc", "isNative": false, "balanceThreshold": "0"}
//	    ]
//	  },
//	  ...
//	]
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chainregistry: read %s: %w", path, err)
	}
	return LoadJSON(raw)
}

// LoadJSON parses chain-catalog JSON bytes into a validated Registry.
func LoadJSON(raw []byte) (*Registry, error) {
	result := gjson.ParseBytes(raw)
	if !result.IsArray() {
		return nil, fmt.Errorf("chainregistry: chain catalog document must be a JSON array")
	}

	var chains []Chain
	result.ForEach(func(_, entry gjson.Result) bool {
		chains = append(chains, parseChain(entry))
		return true
	})
	return NewRegistry(chains)
}

func parseChain(entry gjson.Result) Chain {
	var providers []string
	for _, p := range entry.Get("providers").Array() {
		providers = append(providers, p.String())
	}

	var assets []Asset
	for _, a := range entry.Get("assets").Array() {
		threshold := a.Get("balanceThreshold").String()
		if threshold == "" {
			threshold = "0"
		}
		assets = append(assets, Asset{
			Address:          a.Get("address").String(),
			Symbol:           a.Get("symbol").String(),
			Decimals:         int(a.Get("decimals").Int()),
			TickerHash:       a.Get("tickerHash").String(),
			IsNative:         a.Get("isNative").Bool(),
			BalanceThreshold: threshold,
		})
	}

	return Chain{
		ChainID:      entry.Get("chainId").Int(),
		Name:         entry.Get("name").String(),
		Providers:    providers,
		Assets:       assets,
		OwnerAddress: entry.Get("ownerAddress").String(),
	}
}
