// Package decimal provides canonical 18-decimal arbitrary-precision
// arithmetic for cross-chain amounts. All route-level reasoning uses the
// canonical representation; conversion to/from an asset's native decimals
// happens at exactly two boundaries: balance read-in and adapter call-out.
package decimal

import (
	"fmt"
	"math/big"
)

// CanonicalDecimals is the fixed scale every amount is normalized to
// internally, regardless of the asset's native decimals on any given chain.
const CanonicalDecimals = 18

// pow10 returns 10^n as a *big.Int. n is always small (<= 18) in practice.
func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToCanonical converts amount, expressed in an asset's native decimals, to
// the canonical 18-decimal representation. It only ever multiplies: the
// canonical representation always has at least as many digits as the
// native one, so no precision is lost going in.
func ToCanonical(amount *big.Int, nativeDecimals int) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("decimal: nil amount")
	}
	if nativeDecimals < 0 || nativeDecimals > CanonicalDecimals {
		return nil, fmt.Errorf("decimal: native decimals %d out of range [0,%d]", nativeDecimals, CanonicalDecimals)
	}
	scale := CanonicalDecimals - nativeDecimals
	if scale == 0 {
		return new(big.Int).Set(amount), nil
	}
	return new(big.Int).Mul(amount, pow10(scale)), nil
}

// FromCanonical converts a canonical 18-decimal amount down to an asset's
// native decimals. Conversion truncates toward zero (integer division) —
// the only rounding mode this system uses, per the route-boundary
// invariant in spec §4.2.
func FromCanonical(amount *big.Int, nativeDecimals int) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("decimal: nil amount")
	}
	if nativeDecimals < 0 || nativeDecimals > CanonicalDecimals {
		return nil, fmt.Errorf("decimal: native decimals %d out of range [0,%d]", nativeDecimals, CanonicalDecimals)
	}
	scale := CanonicalDecimals - nativeDecimals
	if scale == 0 {
		return new(big.Int).Set(amount), nil
	}
	quo := new(big.Int)
	quo.Quo(amount, pow10(scale))
	return quo, nil
}

// BpsOf returns amount * bps / 10_000, truncated toward zero. Used for
// slippage tolerance and fee-style basis-point computations.
func BpsOf(amount *big.Int, bps int64) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount, big.NewInt(bps))
	return num.Quo(num, big.NewInt(10_000))
}

// MinAcceptable returns amount - BpsOf(amount, slippageBps), the minimum
// received amount that satisfies a route's slippage tolerance.
func MinAcceptable(amount *big.Int, slippageBps int64) *big.Int {
	return new(big.Int).Sub(amount, BpsOf(amount, slippageBps))
}

// ParseCanonical parses a base-10 string into a canonical amount. Returns
// an error for malformed input rather than silently truncating.
func ParseCanonical(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("decimal: invalid canonical amount %q", s)
	}
	return v, nil
}

// String renders amount as a base-10 string for storage.
func String(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
