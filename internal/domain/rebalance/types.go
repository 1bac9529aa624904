// Package rebalance holds the durable entities the Operation Store owns:
// earmarks, rebalance operations, and their audit trail (spec §3).
package rebalance

import (
	"math/big"
	"time"
)

// EarmarkStatus is the lifecycle state of an Earmark.
type EarmarkStatus string

const (
	EarmarkPending   EarmarkStatus = "PENDING"
	EarmarkReady     EarmarkStatus = "READY"
	EarmarkCompleted EarmarkStatus = "COMPLETED"
	EarmarkCancelled EarmarkStatus = "CANCELLED"
	EarmarkExpired   EarmarkStatus = "EXPIRED"
)

// IsTerminal reports whether s is a terminal earmark status.
func (s EarmarkStatus) IsTerminal() bool {
	switch s {
	case EarmarkCompleted, EarmarkCancelled, EarmarkExpired:
		return true
	default:
		return false
	}
}

// Earmark reserves an upcoming fill against a specific invoice (spec §3).
type Earmark struct {
	ID                      string
	InvoiceID               string
	DesignatedPurchaseChain int64
	TickerHash              string
	MinAmount               *big.Int // native units of the designated chain
	Status                  EarmarkStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// OperationStatus is the lifecycle state of a Rebalance Operation (spec §4.4).
type OperationStatus string

const (
	OperationPending           OperationStatus = "PENDING"
	OperationAwaitingCallback  OperationStatus = "AWAITING_CALLBACK"
	OperationCompleted         OperationStatus = "COMPLETED"
	OperationCancelled         OperationStatus = "CANCELLED"
	OperationExpired           OperationStatus = "EXPIRED"
	OperationFailed            OperationStatus = "FAILED"
)

// IsTerminal reports whether s is a terminal operation status. Spec §3:
// "once COMPLETED|CANCELLED|EXPIRED|FAILED, status never changes again."
func (s OperationStatus) IsTerminal() bool {
	switch s {
	case OperationCompleted, OperationCancelled, OperationExpired, OperationFailed:
		return true
	default:
		return false
	}
}

// nonTerminalStatuses lists the statuses the Callback Engine and sweeper
// consider "in flight".
var nonTerminalStatuses = []OperationStatus{OperationPending, OperationAwaitingCallback}

// NonTerminalStatuses returns the set of non-terminal operation statuses.
func NonTerminalStatuses() []OperationStatus {
	out := make([]OperationStatus, len(nonTerminalStatuses))
	copy(out, nonTerminalStatuses)
	return out
}

// Receipt is an opaque, adapter-supplied transaction receipt descriptor,
// stored verbatim by chain id (spec §6's "transactions jsonb" column; spec
// §9: "the orchestrator never parses logs itself beyond what the adapter
// returns").
type Receipt struct {
	TransactionHash     string `json:"transactionHash"`
	BlockNumber         uint64 `json:"blockNumber"`
	Status              string `json:"status"` // "success" | "failed"
	CumulativeGasUsed   uint64 `json:"cumulativeGasUsed,omitempty"`
	EffectiveGasPrice   string `json:"effectiveGasPrice,omitempty"`
}

// Succeeded reports whether the receipt represents an on-chain success.
func (r Receipt) Succeeded() bool {
	return r.Status == "success"
}

// Operation is one durable, multi-phase rebalance transfer (spec §3).
type Operation struct {
	ID                   string
	EarmarkID             *string // nil => standalone/threshold-driven
	OriginChainID         int64
	DestinationChainID    int64
	TickerHash            string
	Amount                *big.Int // canonical 18-decimal
	Slippage              int64    // bps
	Bridge                string   // adapter name
	Recipient             string
	Transactions          map[int64]Receipt // chain id -> receipt
	Status                OperationStatus
	IsOrphaned            bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AuditAction identifies what kind of entity an audit row describes.
type AuditAction string

const (
	AuditActionEarmark   AuditAction = "earmark"
	AuditActionOperation AuditAction = "operation"
)

// AuditLogEntry is one append-only row recording a status mutation.
type AuditLogEntry struct {
	ID           string
	EntityID     string
	Action       AuditAction
	PriorStatus  string
	NewStatus    string
	Reason       string
	CreatedAt    time.Time
}
