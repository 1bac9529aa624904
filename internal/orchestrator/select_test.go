package orchestrator_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/everclearorg/mark-sub000/infrastructure/resilience"
	"github.com/everclearorg/mark-sub000/internal/adapters"
	"github.com/everclearorg/mark-sub000/internal/adapters/delayed"
	"github.com/everclearorg/mark-sub000/internal/adapters/instant"
	"github.com/everclearorg/mark-sub000/internal/chainservice"
	"github.com/everclearorg/mark-sub000/internal/domain/chainregistry"
	"github.com/everclearorg/mark-sub000/internal/domain/policy"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
	"github.com/everclearorg/mark-sub000/internal/orchestrator"
)

type fakeOperationStore struct {
	created []rebalance.Operation
}

func (f *fakeOperationStore) CreateOperation(ctx context.Context, op rebalance.Operation) (rebalance.Operation, error) {
	op.ID = "op1"
	f.created = append(f.created, op)
	return op, nil
}

func selectorRoute() policy.Route {
	return policy.Route{
		Origin:      1,
		Destination: 10,
		TickerHash:  "usdc",
		Preferences: []string{"across"},
		Slippages:   []int64{50},
		Recipient:   "0xrecipient",
	}
}

func TestSelectorWritesPendingOperationOnFirstWorkingPreference(t *testing.T) {
	reg := adapters.NewRegistry(resilience.DefaultBreakerConfig())
	reg.Register(instant.New("across"))

	store := &fakeOperationStore{}
	chains := chainservice.NewMemChainService()
	selector := orchestrator.NewSelector(orchestrator.SelectorConfig{
		Adapters: reg,
		Chains:   chains,
		Store:    store,
		Owners:   map[int64]string{1: "0xowner"},
	})

	decision := orchestrator.RouteDecision{
		Route:           selectorRoute(),
		CanonicalAmount: big.NewInt(5_000_000_000_000_000_000),
		NativeAmount:    big.NewInt(5_000_000),
		OriginAsset:     chainregistry.Asset{Decimals: 6},
	}

	op, err := selector.Select(context.Background(), decision)
	require.NoError(t, err)
	require.NotNil(t, op)
	require.Equal(t, rebalance.OperationPending, op.Status)
	require.Equal(t, "across", op.Bridge)
	require.Len(t, store.created, 1)
}

func TestSelectorFallsBackToNextPreferenceOnUnknownBridge(t *testing.T) {
	reg := adapters.NewRegistry(resilience.DefaultBreakerConfig())
	reg.Register(instant.New("across"))

	route := selectorRoute()
	route.Preferences = []string{"nonexistent", "across"}
	route.Slippages = []int64{50, 50}

	store := &fakeOperationStore{}
	selector := orchestrator.NewSelector(orchestrator.SelectorConfig{
		Adapters: reg,
		Chains:   chainservice.NewMemChainService(),
		Store:    store,
		Owners:   map[int64]string{1: "0xowner"},
	})

	decision := orchestrator.RouteDecision{
		Route:           route,
		CanonicalAmount: big.NewInt(1_000_000_000_000_000_000),
		NativeAmount:    big.NewInt(1_000_000),
		OriginAsset:     chainregistry.Asset{Decimals: 6},
	}

	op, err := selector.Select(context.Background(), decision)
	require.NoError(t, err)
	require.NotNil(t, op)
	require.Equal(t, "across", op.Bridge)
}

func TestSelectorAbortsRouteOnFailedApprovalStep(t *testing.T) {
	reg := adapters.NewRegistry(resilience.DefaultBreakerConfig())
	reg.Register(delayed.New("stargate", 2))

	chains := chainservice.NewMemChainService()
	chains.FailNext(1, "0xowner", nil) // approval step targets `sender` == owner

	store := &fakeOperationStore{}
	selector := orchestrator.NewSelector(orchestrator.SelectorConfig{
		Adapters: reg,
		Chains:   chains,
		Store:    store,
		Owners:   map[int64]string{1: "0xowner"},
	})

	route := selectorRoute()
	route.Preferences = []string{"stargate"}
	route.Slippages = []int64{100}

	decision := orchestrator.RouteDecision{
		Route:           route,
		CanonicalAmount: big.NewInt(1_000_000_000_000_000_000),
		NativeAmount:    big.NewInt(1_000_000),
		OriginAsset:     chainregistry.Asset{Decimals: 6},
	}

	op, err := selector.Select(context.Background(), decision)
	require.Error(t, err)
	require.Nil(t, op)
	require.Empty(t, store.created)
}

func TestSelectorSkipsOnSlippageViolation(t *testing.T) {
	reg := adapters.NewRegistry(resilience.DefaultBreakerConfig())
	reg.Register(delayed.New("stargate", 1)) // quotes 99.5%

	route := selectorRoute()
	route.Preferences = []string{"stargate"}
	route.Slippages = []int64{1} // 0.01% tolerance, quote misses it

	store := &fakeOperationStore{}
	selector := orchestrator.NewSelector(orchestrator.SelectorConfig{
		Adapters: reg,
		Chains:   chainservice.NewMemChainService(),
		Store:    store,
		Owners:   map[int64]string{1: "0xowner"},
	})

	decision := orchestrator.RouteDecision{
		Route:           route,
		CanonicalAmount: big.NewInt(1_000_000_000_000_000_000),
		NativeAmount:    big.NewInt(1_000_000),
		OriginAsset:     chainregistry.Asset{Decimals: 6},
	}

	op, err := selector.Select(context.Background(), decision)
	require.NoError(t, err)
	require.Nil(t, op)
	require.Empty(t, store.created)
}
