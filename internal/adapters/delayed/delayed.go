// Package delayed provides a BridgeAdapter reference implementation whose
// destination leg requires several ReadyOnDestination polls before it
// latches true, and which requires a destination-chain claim transaction
// (spec §4.5's DestinationCallback) — grounding the "wrap/claim/mint"
// shape described in the glossary.
package delayed

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/everclearorg/mark-sub000/internal/adapters"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// Adapter requires PollsUntilReady calls to ReadyOnDestination for a given
// origin receipt before latching, and then returns a single claim
// transaction from DestinationCallback.
type Adapter struct {
	Name            string
	PollsUntilReady int

	mu    sync.Mutex
	polls map[string]int // originReceipt.TransactionHash -> polls seen so far
}

// New constructs a delayed Adapter that requires pollsUntilReady calls to
// ReadyOnDestination before latching.
func New(name string, pollsUntilReady int) *Adapter {
	if pollsUntilReady < 1 {
		pollsUntilReady = 1
	}
	return &Adapter{
		Name:            name,
		PollsUntilReady: pollsUntilReady,
		polls:           make(map[string]int),
	}
}

func (a *Adapter) Type() string { return a.Name }

func (a *Adapter) GetReceivedAmount(ctx context.Context, amount *big.Int, route adapters.Route) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s: amount must be positive", a.Name)
	}
	// Quotes 99.5% of the requested amount to exercise the slippage gate.
	received := new(big.Int).Mul(amount, big.NewInt(995))
	return received.Quo(received, big.NewInt(1000)), nil
}

func (a *Adapter) GetMinimumAmount(ctx context.Context, route adapters.Route) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (a *Adapter) Send(ctx context.Context, sender, recipient string, amount *big.Int, route adapters.Route) ([]adapters.SendStep, error) {
	return []adapters.SendStep{
		{
			Transaction: adapters.UnsignedTx{
				ChainID: route.Origin,
				To:      sender,
				FuncSig: "approve(address,uint256)",
			},
			Memo: adapters.MemoApproval,
		},
		{
			Transaction: adapters.UnsignedTx{
				ChainID: route.Origin,
				To:      recipient,
				Value:   amount,
				FuncSig: "rebalance(address,uint256)",
			},
			Memo: adapters.MemoRebalance,
		},
	}, nil
}

func (a *Adapter) ReadyOnDestination(ctx context.Context, amount *big.Int, route adapters.Route, originReceipt rebalance.Receipt) (bool, error) {
	if !originReceipt.Succeeded() {
		return false, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.polls[originReceipt.TransactionHash]++
	return a.polls[originReceipt.TransactionHash] >= a.PollsUntilReady, nil
}

func (a *Adapter) DestinationCallback(ctx context.Context, route adapters.Route, originReceipt rebalance.Receipt) (*adapters.UnsignedTx, error) {
	return &adapters.UnsignedTx{
		ChainID: route.Destination,
		To:      "0xclaim",
		FuncSig: "claim(bytes32)",
	}, nil
}

var _ adapters.BridgeAdapter = (*Adapter)(nil)
