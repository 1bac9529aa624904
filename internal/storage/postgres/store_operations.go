package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/everclearorg/mark-sub000/internal/domain/errors"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// CreateOperation inserts a new operation, defaulting Status to PENDING
// and Transactions to an empty map, and appends the creation's audit row
// in the same transaction (spec §3/§4.4).
func (s *Store) CreateOperation(ctx context.Context, op rebalance.Operation) (rebalance.Operation, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Status == "" {
		op.Status = rebalance.OperationPending
	}
	if op.Transactions == nil {
		op.Transactions = make(map[int64]rebalance.Receipt)
	}
	now := time.Now().UTC()
	op.CreatedAt = now
	op.UpdatedAt = now

	txJSON, err := marshalTransactions(op.Transactions)
	if err != nil {
		return rebalance.Operation{}, err
	}

	insert := func(ctx context.Context) error {
		_, err := s.querier(ctx).ExecContext(ctx, `
			INSERT INTO rebalance_operations
				(id, earmark_id, origin_chain_id, destination_chain_id, ticker_hash, amount, slippage, status, bridge, recipient, transactions, is_orphaned, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, op.ID, nullableEarmarkID(op.EarmarkID), op.OriginChainID, op.DestinationChainID, op.TickerHash,
			op.Amount.String(), op.Slippage, string(op.Status), op.Bridge, op.Recipient, txJSON, op.IsOrphaned, op.CreatedAt, op.UpdatedAt)
		if err != nil {
			return wrapStoreErr("create operation", err)
		}
		return s.appendAudit(ctx, rebalance.AuditActionOperation, op.ID, "create", "", string(op.Status), "operation created")
	}

	if err := s.withTx(ctx, insert); err != nil {
		return rebalance.Operation{}, err
	}
	return op, nil
}

// GetOperation looks up one operation by id.
func (s *Store) GetOperation(ctx context.Context, id string) (rebalance.Operation, error) {
	row := s.querier(ctx).QueryRowContext(ctx, operationSelectColumns+` FROM rebalance_operations WHERE id = $1`, id)
	op, err := scanOperation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return rebalance.Operation{}, domainerrors.NewNotFoundError("operation", id)
		}
		return rebalance.Operation{}, wrapStoreErr("get operation", err)
	}
	return op, nil
}

// OperationFilter selects a subset of operations. A zero value for a
// field means "unconstrained"; StandaloneOnly selects EarmarkID IS NULL.
type OperationFilter struct {
	Status        []rebalance.OperationStatus
	ChainID       int64 // matches OriginChainID or DestinationChainID when non-zero
	EarmarkID     string
	StandaloneOnly bool
	Limit         int
	Offset        int
}

// ListOperations returns operations matching filter, newest first (spec
// §6's "parameterized filtered listing ... pagination (limit ≤ 1000,
// offset ≥ 0)").
func (s *Store) ListOperations(ctx context.Context, filter OperationFilter) ([]rebalance.Operation, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := operationSelectColumns + ` FROM rebalance_operations`
	var conditions []string
	var args []any

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			args = append(args, string(st))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ChainID != 0 {
		args = append(args, filter.ChainID)
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(origin_chain_id = $%d OR destination_chain_id = $%d)", idx, idx))
	}
	if filter.StandaloneOnly {
		conditions = append(conditions, "earmark_id IS NULL")
	} else if filter.EarmarkID != "" {
		args = append(args, filter.EarmarkID)
		conditions = append(conditions, fmt.Sprintf("earmark_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("list operations", err)
	}
	defer rows.Close()

	var out []rebalance.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, wrapStoreErr("list operations", err)
		}
		out = append(out, op)
	}
	return out, wrapStoreErr("list operations", rows.Err())
}

// ListNonTerminalOperations returns every operation in {PENDING,
// AWAITING_CALLBACK}, the Callback Engine's per-tick working set (spec
// §4.6 step 1).
func (s *Store) ListNonTerminalOperations(ctx context.Context) ([]rebalance.Operation, error) {
	return s.ListOperations(ctx, OperationFilter{Status: rebalance.NonTerminalStatuses(), Limit: 1000})
}

// TransitionOperation moves an operation to newStatus, appends an audit
// row, and (when newStatus is COMPLETED and the operation has an
// earmark) attempts earmark promotion — all in one transaction (spec
// §4.4, §4.6 step 5). Returns a PreconditionError if the operation is
// already terminal.
func (s *Store) TransitionOperation(ctx context.Context, id string, newStatus rebalance.OperationStatus, reason string) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		var prior string
		var earmarkID sql.NullString
		row := s.querier(ctx).QueryRowContext(ctx, `SELECT status, earmark_id FROM rebalance_operations WHERE id = $1 FOR UPDATE`, id)
		if err := row.Scan(&prior, &earmarkID); err != nil {
			if err == sql.ErrNoRows {
				return domainerrors.NewNotFoundError("operation", id)
			}
			return wrapStoreErr("transition operation", err)
		}
		if rebalance.OperationStatus(prior).IsTerminal() {
			return domainerrors.NewPreconditionError(fmt.Sprintf("operation %s is already terminal (%s)", id, prior))
		}

		now := time.Now().UTC()
		if _, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE rebalance_operations SET status = $2, updated_at = $3 WHERE id = $1
		`, id, string(newStatus), now); err != nil {
			return wrapStoreErr("transition operation", err)
		}

		if err := s.appendAudit(ctx, rebalance.AuditActionOperation, id, "transition", prior, string(newStatus), reason); err != nil {
			return err
		}

		if newStatus == rebalance.OperationCompleted && earmarkID.Valid {
			return s.promoteEarmarkIfSiblingsSettled(ctx, earmarkID.String)
		}
		return nil
	})
}

// CancelOperation cancels a standalone admin action. Spec §6: "operation
// must be in {PENDING, AWAITING_CALLBACK}". When the cancelled operation
// is the last non-terminal child of an earmark, this can settle the
// earmark exactly as a COMPLETED transition does (spec §8 seed scenario
// 5), so it attempts the same promotion check.
func (s *Store) CancelOperation(ctx context.Context, id, reason string) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		var prior string
		var earmarkID sql.NullString
		row := s.querier(ctx).QueryRowContext(ctx, `SELECT status, earmark_id FROM rebalance_operations WHERE id = $1 FOR UPDATE`, id)
		if err := row.Scan(&prior, &earmarkID); err != nil {
			if err == sql.ErrNoRows {
				return domainerrors.NewNotFoundError("operation", id)
			}
			return wrapStoreErr("cancel operation", err)
		}
		st := rebalance.OperationStatus(prior)
		if st != rebalance.OperationPending && st != rebalance.OperationAwaitingCallback {
			return domainerrors.NewPreconditionError(fmt.Sprintf("operation %s is in status %s, cannot cancel", id, prior))
		}

		now := time.Now().UTC()
		if _, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE rebalance_operations SET status = $2, updated_at = $3 WHERE id = $1
		`, id, string(rebalance.OperationCancelled), now); err != nil {
			return wrapStoreErr("cancel operation", err)
		}

		if err := s.appendAudit(ctx, rebalance.AuditActionOperation, id, "cancel", prior, string(rebalance.OperationCancelled), reason); err != nil {
			return err
		}

		if earmarkID.Valid {
			return s.promoteEarmarkIfSiblingsSettled(ctx, earmarkID.String)
		}
		return nil
	})
}

// AppendReceipt merges receipt into the operation's transactions map
// under chainID, in its own transaction (no status change, no audit
// row — receipt attachment alone is not a lifecycle transition).
func (s *Store) AppendReceipt(ctx context.Context, id string, chainID int64, receipt rebalance.Receipt) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		var raw []byte
		row := s.querier(ctx).QueryRowContext(ctx, `SELECT transactions FROM rebalance_operations WHERE id = $1 FOR UPDATE`, id)
		if err := row.Scan(&raw); err != nil {
			if err == sql.ErrNoRows {
				return domainerrors.NewNotFoundError("operation", id)
			}
			return wrapStoreErr("append receipt", err)
		}

		txs, err := unmarshalTransactions(raw)
		if err != nil {
			return wrapStoreErr("append receipt", err)
		}
		txs[chainID] = receipt

		txJSON, err := marshalTransactions(txs)
		if err != nil {
			return wrapStoreErr("append receipt", err)
		}

		now := time.Now().UTC()
		_, err = s.querier(ctx).ExecContext(ctx, `
			UPDATE rebalance_operations SET transactions = $2, updated_at = $3 WHERE id = $1
		`, id, txJSON, now)
		return wrapStoreErr("append receipt", err)
	})
}

// MarkOrphaned flags a single operation isOrphaned=true without
// changing its status. CancelEarmark and the sweeper's earmark expiry
// (expireOneEarmark) orphan child operations with their own bulk SQL and
// do not call it.
func (s *Store) MarkOrphaned(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE rebalance_operations SET is_orphaned = TRUE, updated_at = $2 WHERE id = $1
	`, id, now)
	if err != nil {
		return wrapStoreErr("mark orphaned", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domainerrors.NewNotFoundError("operation", id)
	}
	return nil
}

const operationSelectColumns = `SELECT id, earmark_id, origin_chain_id, destination_chain_id, ticker_hash, amount, slippage, status, bridge, recipient, transactions, is_orphaned, created_at, updated_at`

func scanOperation(row rowScanner) (rebalance.Operation, error) {
	var (
		op        rebalance.Operation
		earmarkID sql.NullString
		amount    string
		status    string
		txRaw     []byte
	)
	if err := row.Scan(&op.ID, &earmarkID, &op.OriginChainID, &op.DestinationChainID, &op.TickerHash,
		&amount, &op.Slippage, &status, &op.Bridge, &op.Recipient, &txRaw, &op.IsOrphaned, &op.CreatedAt, &op.UpdatedAt); err != nil {
		return rebalance.Operation{}, err
	}

	amt, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return rebalance.Operation{}, fmt.Errorf("operation %s: invalid amount %q", op.ID, amount)
	}
	op.Amount = amt
	op.Status = rebalance.OperationStatus(status)
	if earmarkID.Valid {
		id := earmarkID.String
		op.EarmarkID = &id
	}
	txs, err := unmarshalTransactions(txRaw)
	if err != nil {
		return rebalance.Operation{}, fmt.Errorf("operation %s: %w", op.ID, err)
	}
	op.Transactions = txs
	op.CreatedAt = op.CreatedAt.UTC()
	op.UpdatedAt = op.UpdatedAt.UTC()
	return op, nil
}

func nullableEarmarkID(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *id, Valid: true}
}

func marshalTransactions(txs map[int64]rebalance.Receipt) ([]byte, error) {
	byString := make(map[string]rebalance.Receipt, len(txs))
	for chainID, r := range txs {
		byString[fmt.Sprintf("%d", chainID)] = r
	}
	raw, err := json.Marshal(byString)
	if err != nil {
		return nil, fmt.Errorf("marshal transactions: %w", err)
	}
	return raw, nil
}

func unmarshalTransactions(raw []byte) (map[int64]rebalance.Receipt, error) {
	out := make(map[int64]rebalance.Receipt)
	if len(raw) == 0 {
		return out, nil
	}
	var byString map[string]rebalance.Receipt
	if err := json.Unmarshal(raw, &byString); err != nil {
		return nil, fmt.Errorf("unmarshal transactions: %w", err)
	}
	for key, r := range byString {
		var chainID int64
		if _, err := fmt.Sscanf(key, "%d", &chainID); err != nil {
			return nil, fmt.Errorf("invalid chain id key %q: %w", key, err)
		}
		out[chainID] = r
	}
	return out, nil
}
