// Package adapters defines the BridgeAdapter contract (spec §4.5) and a
// name-keyed registry over it. Every concrete bridge (Across, Stargate,
// CCIP, ...) is an external collaborator implementing this interface; the
// core treats every adapter as an opaque black box.
package adapters

import (
	"context"
	"math/big"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// Memo tags one transaction within a Send() result, identifying its role
// in the submission sequence (spec §4.5).
type Memo string

const (
	MemoApproval   Memo = "Approval"
	MemoRebalance  Memo = "Rebalance"
	MemoWrap       Memo = "Wrap"
	MemoUnwrap     Memo = "Unwrap"
	MemoMint       Memo = "Mint"
)

// UnsignedTx describes one transaction an adapter wants executed, prior to
// submission through ChainService.
type UnsignedTx struct {
	ChainID int64
	To      string
	Data    []byte
	Value   *big.Int
	FuncSig string
}

// SendStep is one entry in the ordered list Send() returns. Exactly one
// step per Send() call has Memo == MemoRebalance.
type SendStep struct {
	Transaction     UnsignedTx
	Memo            Memo
	EffectiveAmount *big.Int // optional; overrides the requested amount when set
}

// Route is the (origin, destination, asset) context passed to every
// adapter call, mirroring the Route Evaluator's output (spec §4.2/§4.5).
type Route struct {
	Origin      int64
	Destination int64
	Asset       string
	TickerHash  string
}

// BridgeAdapter is the contract every external bridge collaborator
// implements (spec §4.5). Amounts passed to and received from adapters are
// always in the relevant chain's native decimals — the core converts at
// the route boundary and adapters never see 18-decimal figures.
type BridgeAdapter interface {
	// Type returns this adapter's bridge name, used as the registry key
	// and the RebalanceOperation.Bridge value.
	Type() string

	// GetReceivedAmount is a pure quote in destination native units. Fails
	// when amount is below the bridge's minimum or the route is
	// unsupported.
	GetReceivedAmount(ctx context.Context, amount *big.Int, route Route) (*big.Int, error)

	// GetMinimumAmount returns an optional floor in origin native units;
	// a nil result means no floor.
	GetMinimumAmount(ctx context.Context, route Route) (*big.Int, error)

	// Send returns the ordered list of transactions needed to execute one
	// transfer of amount native units from sender to recipient. The
	// ordering is the required submission order.
	Send(ctx context.Context, sender, recipient string, amount *big.Int, route Route) ([]SendStep, error)

	// ReadyOnDestination is a non-blocking poll. False means "try again
	// later"; true is a latch — the orchestrator never calls it again for
	// the same operation once it has returned true.
	ReadyOnDestination(ctx context.Context, amount *big.Int, route Route, originReceipt rebalance.Receipt) (bool, error)

	// DestinationCallback is called at most once per operation, after
	// ReadyOnDestination first returns true. A nil transaction means no
	// further action is needed.
	DestinationCallback(ctx context.Context, route Route, originReceipt rebalance.Receipt) (*UnsignedTx, error)
}

// PermanentError marks an adapter failure that will never succeed on
// retry (spec §9's recommended resolution to the AWAITING_CALLBACK->FAILED
// open question: "promoting to FAILED on an adapter-signaled permanent
// error"). Adapters opt in by returning an error satisfying this
// interface; any other error is treated as transient.
type PermanentError interface {
	error
	Permanent() bool
}

// IsPermanent reports whether err indicates an unrecoverable adapter
// failure.
func IsPermanent(err error) bool {
	pe, ok := err.(PermanentError)
	return ok && pe.Permanent()
}
