package policy

import (
	"fmt"
	"math/big"
	"os"

	"github.com/tidwall/gjson"

	"github.com/everclearorg/mark-sub000/infrastructure/decimal"
)

// LoadFile parses a JSON route-policy file into a validated Store. The
// permissive top-level shape is:
//
//	[
//	  {
//	    "origin": 1, "destination": 10, "asset": "0x...", "tickerHash": "usdc",
//	    "maximum": "100000000000000000000", "reserve": "5000000000000000000",
//	    "preferences": ["across", "stargate"], "slippages": [30, 50],
//	    "recipient": "0x..."
//	  },
//	  ...
//	]
//
// tidwall/gjson walks the array without requiring a strict struct
// round-trip up front, which keeps malformed individual entries from
// aborting the parse of sibling entries before validation aggregates all
// problems into one error (spec §7's fail-fast startup requirement).
func LoadFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return LoadJSON(raw)
}

// LoadJSON parses route-policy JSON bytes into a validated Store.
func LoadJSON(raw []byte) (*Store, error) {
	result := gjson.ParseBytes(raw)
	if !result.IsArray() {
		return nil, fmt.Errorf("policy: route policy document must be a JSON array")
	}

	var routes []Route
	var parseErrs []error
	idx := 0
	result.ForEach(func(_, entry gjson.Result) bool {
		r, err := parseRoute(idx, entry)
		if err != nil {
			parseErrs = append(parseErrs, err)
		} else {
			routes = append(routes, r)
		}
		idx++
		return true
	})
	if len(parseErrs) > 0 {
		return nil, aggregateValidation(parseErrs)
	}
	return NewStore(routes)
}

func parseRoute(idx int, entry gjson.Result) (Route, error) {
	maxStr := entry.Get("maximum").String()
	maximum, err := decimal.ParseCanonical(maxStr)
	if err != nil {
		return Route{}, fmt.Errorf("route[%d]: invalid maximum %q: %w", idx, maxStr, err)
	}

	var reserve *big.Int
	if rv := entry.Get("reserve"); rv.Exists() && rv.String() != "" {
		reserve, err = decimal.ParseCanonical(rv.String())
		if err != nil {
			return Route{}, fmt.Errorf("route[%d]: invalid reserve %q: %w", idx, rv.String(), err)
		}
	}

	var preferences []string
	for _, p := range entry.Get("preferences").Array() {
		preferences = append(preferences, p.String())
	}
	var slippages []int64
	for _, s := range entry.Get("slippages").Array() {
		slippages = append(slippages, s.Int())
	}

	return Route{
		Origin:      entry.Get("origin").Int(),
		Destination: entry.Get("destination").Int(),
		Asset:       entry.Get("asset").String(),
		TickerHash:  entry.Get("tickerHash").String(),
		Maximum:     maximum,
		Reserve:     reserve,
		Preferences: preferences,
		Slippages:   slippages,
		Recipient:   entry.Get("recipient").String(),
	}, nil
}
