package orchestrator_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/everclearorg/mark-sub000/internal/balances"
	"github.com/everclearorg/mark-sub000/internal/domain/chainregistry"
	"github.com/everclearorg/mark-sub000/internal/domain/policy"
	"github.com/everclearorg/mark-sub000/internal/orchestrator"
)

func testRegistry(t *testing.T) *chainregistry.Registry {
	t.Helper()
	r, err := chainregistry.NewRegistry([]chainregistry.Chain{
		{ChainID: 1, Assets: []chainregistry.Asset{{Address: "0xusdc", Decimals: 6, TickerHash: "usdc"}}},
		{ChainID: 10, Assets: []chainregistry.Asset{{Address: "0xusdc10", Decimals: 6, TickerHash: "usdc"}}},
	})
	require.NoError(t, err)
	return r
}

func baseRoute() policy.Route {
	return policy.Route{
		Origin:      1,
		Destination: 10,
		TickerHash:  "usdc",
		Maximum:     big.NewInt(1_000_000_000_000_000_000), // 1.0 canonical
		Preferences: []string{"across"},
		Slippages:   []int64{50},
		Recipient:   "0xrecipient",
	}
}

func TestEvaluateRouteSkipsWhenNoBalance(t *testing.T) {
	snap := make(balances.Snapshot)
	decision, err := orchestrator.EvaluateRoute(snap, testRegistry(t), baseRoute())
	require.NoError(t, err)
	require.Equal(t, orchestrator.SkipNoBalances, decision.Skip)
	require.False(t, decision.Proceed())
}

func TestEvaluateRouteSkipsAtOrBelowMaximum(t *testing.T) {
	snap := make(balances.Snapshot)
	snap["usdc"] = map[int64]*big.Int{1: big.NewInt(1_000_000_000_000_000_000)}
	decision, err := orchestrator.EvaluateRoute(snap, testRegistry(t), baseRoute())
	require.NoError(t, err)
	require.Equal(t, orchestrator.SkipAtOrBelowMaximum, decision.Skip)
}

func TestEvaluateRouteSkipsWhenReserveConsumesInventory(t *testing.T) {
	route := baseRoute()
	route.Reserve = big.NewInt(3_000_000_000_000_000_000)
	snap := make(balances.Snapshot)
	snap["usdc"] = map[int64]*big.Int{1: big.NewInt(2_000_000_000_000_000_000)}

	decision, err := orchestrator.EvaluateRoute(snap, testRegistry(t), route)
	require.NoError(t, err)
	require.Equal(t, orchestrator.SkipReserveConsumesInventory, decision.Skip)
}

func TestEvaluateRouteProceedsAndConvertsToNative(t *testing.T) {
	snap := make(balances.Snapshot)
	snap["usdc"] = map[int64]*big.Int{1: big.NewInt(5_000_000_000_000_000_000)} // 5.0 canonical
	decision, err := orchestrator.EvaluateRoute(snap, testRegistry(t), baseRoute())
	require.NoError(t, err)
	require.True(t, decision.Proceed())
	require.Equal(t, big.NewInt(5_000_000_000_000_000_000), decision.CanonicalAmount) // no reserve set, full balance
	require.Equal(t, big.NewInt(5_000_000), decision.NativeAmount)                    // 5.0 canonical -> 6 decimals native
}

func TestEvaluateRouteErrorsWhenAssetMissing(t *testing.T) {
	registry, err := chainregistry.NewRegistry([]chainregistry.Chain{{ChainID: 1}})
	require.NoError(t, err)
	snap := make(balances.Snapshot)
	snap["usdc"] = map[int64]*big.Int{1: big.NewInt(5_000_000_000_000_000_000)}

	_, err = orchestrator.EvaluateRoute(snap, registry, baseRoute())
	require.Error(t, err)
}
