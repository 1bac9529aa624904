// Package instant provides a BridgeAdapter reference implementation whose
// destination leg is ready immediately and requires no destination
// callback — the simplest legal adapter under the spec §4.5 contract,
// used by engine tests and `cmd/rebalancer -dev`.
package instant

import (
	"context"
	"fmt"
	"math/big"

	"github.com/everclearorg/mark-sub000/internal/adapters"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// Adapter is a trivial same-block bridge: it quotes the requested amount
// 1:1, emits a single Rebalance transaction, and is ready on destination
// the first time it is polled.
type Adapter struct {
	Name string
}

// New constructs an instant Adapter registered under name.
func New(name string) *Adapter {
	return &Adapter{Name: name}
}

func (a *Adapter) Type() string { return a.Name }

func (a *Adapter) GetReceivedAmount(ctx context.Context, amount *big.Int, route adapters.Route) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s: amount must be positive", a.Name)
	}
	return new(big.Int).Set(amount), nil
}

func (a *Adapter) GetMinimumAmount(ctx context.Context, route adapters.Route) (*big.Int, error) {
	return nil, nil
}

func (a *Adapter) Send(ctx context.Context, sender, recipient string, amount *big.Int, route adapters.Route) ([]adapters.SendStep, error) {
	return []adapters.SendStep{
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
	return originReceipt.Succeeded(), nil
}

func (a *Adapter) DestinationCallback(ctx context.Context, route adapters.Route, originReceipt rebalance.Receipt) (*adapters.UnsignedTx, error) {
	return nil, nil
}

var _ adapters.BridgeAdapter = (*Adapter)(nil)
