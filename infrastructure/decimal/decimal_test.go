package decimal

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToCanonicalMultipliesUp(t *testing.T) {
	got, err := ToCanonical(big.NewInt(48_796_999), 6)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("48796999000000000000", 10)
	require.Equal(t, 0, got.Cmp(want))
}

func TestToCanonicalNoOpAt18Decimals(t *testing.T) {
	got, err := ToCanonical(big.NewInt(42), 18)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), got)
}

func TestFromCanonicalTruncates(t *testing.T) {
	current, _ := new(big.Int).SetString("48796999000000000000", 10)
	reserve, _ := new(big.Int).SetString("47000000000000000000", 10)
	amountToBridge := new(big.Int).Sub(current, reserve)

	native, err := FromCanonical(amountToBridge, 6)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_796_999), native)
}

func TestFromCanonicalNoReserveEqualsCanonical(t *testing.T) {
	canonical, _ := new(big.Int).SetString("15000000000000000000", 10)
	native, err := FromCanonical(canonical, 18)
	require.NoError(t, err)
	require.Equal(t, 0, native.Cmp(canonical))
}

func TestMinAcceptable(t *testing.T) {
	amount := big.NewInt(1_000_000)
	// 50 bps tolerance => min acceptable is 995_000
	got := MinAcceptable(amount, 50)
	require.Equal(t, big.NewInt(995_000), got)
}

func TestBpsOfZero(t *testing.T) {
	require.Equal(t, big.NewInt(0), BpsOf(nil, 50))
}

func TestParseCanonicalRoundTrip(t *testing.T) {
	v, err := ParseCanonical("123456789000000000000")
	require.NoError(t, err)
	require.Equal(t, "123456789000000000000", String(v))
}

func TestParseCanonicalInvalid(t *testing.T) {
	_, err := ParseCanonical("not-a-number")
	require.Error(t, err)
}

func TestOutOfRangeDecimals(t *testing.T) {
	_, err := ToCanonical(big.NewInt(1), 19)
	require.Error(t, err)
	_, err = FromCanonical(big.NewInt(1), -1)
	require.Error(t, err)
}
