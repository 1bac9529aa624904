// Package chainservice defines the ChainService contract consumed by the
// orchestrator (spec §6): a synchronous submit-and-monitor call that
// returns only after a transaction's receipt is observed. Production
// implementations (signer abstraction, RPC transport) are out of scope
// per spec §1; this package only specifies the interface plus an
// in-memory reference implementation for tests.
package chainservice

import (
	"context"
	"math/big"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// TxRequest is one transaction submission request.
type TxRequest struct {
	To      string
	Data    []byte
	Value   *big.Int
	From    string
	FuncSig string
}

// ChainService submits a transaction on chainID and blocks until its
// receipt is observed (polling or subscribing internally).
type ChainService interface {
	SubmitAndMonitor(ctx context.Context, chainID int64, req TxRequest) (rebalance.Receipt, error)
}
