package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/everclearorg/mark-sub000/internal/domain/errors"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// CreateEarmark inserts a new PENDING earmark. A duplicate invoice_id
// surfaces as a PreconditionError (spec §3's "invoiceId (unique index)").
func (s *Store) CreateEarmark(ctx context.Context, e rebalance.Earmark) (rebalance.Earmark, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = rebalance.EarmarkPending
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	q := s.querier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO earmarks (id, invoice_id, designated_purchase_chain, ticker_hash, min_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.InvoiceID, e.DesignatedPurchaseChain, e.TickerHash, e.MinAmount.String(), string(e.Status), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return rebalance.Earmark{}, domainerrors.NewPreconditionError(fmt.Sprintf("earmark with invoice_id %q already exists", e.InvoiceID))
		}
		return rebalance.Earmark{}, wrapStoreErr("create earmark", err)
	}
	return e, nil
}

// GetEarmark looks up one earmark by id.
func (s *Store) GetEarmark(ctx context.Context, id string) (rebalance.Earmark, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT id, invoice_id, designated_purchase_chain, ticker_hash, min_amount, status, created_at, updated_at
		FROM earmarks WHERE id = $1
	`, id)
	e, err := scanEarmark(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return rebalance.Earmark{}, domainerrors.NewNotFoundError("earmark", id)
		}
		return rebalance.Earmark{}, wrapStoreErr("get earmark", err)
	}
	return e, nil
}

// EarmarkFilter selects a subset of earmarks. A nil Status means "any".
type EarmarkFilter struct {
	Status []rebalance.EarmarkStatus
	Limit  int
	Offset int
}

// ListEarmarks returns earmarks matching filter, newest first.
func (s *Store) ListEarmarks(ctx context.Context, filter EarmarkFilter) ([]rebalance.Earmark, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, invoice_id, designated_purchase_chain, ticker_hash, min_amount, status, created_at, updated_at FROM earmarks`
	var args []any
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			args = append(args, string(st))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("list earmarks", err)
	}
	defer rows.Close()

	var out []rebalance.Earmark
	for rows.Next() {
		e, err := scanEarmark(rows)
		if err != nil {
			return nil, wrapStoreErr("list earmarks", err)
		}
		out = append(out, e)
	}
	return out, wrapStoreErr("list earmarks", rows.Err())
}

// TransitionEarmark moves an earmark to newStatus and appends an audit
// row in the same transaction (spec §4.4's idempotence requirement).
func (s *Store) TransitionEarmark(ctx context.Context, id string, newStatus rebalance.EarmarkStatus, reason string) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		var prior string
		row := s.querier(ctx).QueryRowContext(ctx, `SELECT status FROM earmarks WHERE id = $1 FOR UPDATE`, id)
		if err := row.Scan(&prior); err != nil {
			if err == sql.ErrNoRows {
				return domainerrors.NewNotFoundError("earmark", id)
			}
			return wrapStoreErr("transition earmark", err)
		}

		now := time.Now().UTC()
		result, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE earmarks SET status = $2, updated_at = $3 WHERE id = $1
		`, id, string(newStatus), now)
		if err != nil {
			return wrapStoreErr("transition earmark", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domainerrors.NewNotFoundError("earmark", id)
		}

		return s.appendAudit(ctx, rebalance.AuditActionEarmark, id, "transition", prior, string(newStatus), reason)
	})
}

// CancelEarmark cancels an earmark (admin action) and marks every
// non-terminal child operation isOrphaned=true, all in one transaction.
// Returns a PreconditionError if the earmark is already terminal.
func (s *Store) CancelEarmark(ctx context.Context, id, reason string) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		var prior string
		row := s.querier(ctx).QueryRowContext(ctx, `SELECT status FROM earmarks WHERE id = $1 FOR UPDATE`, id)
		if err := row.Scan(&prior); err != nil {
			if err == sql.ErrNoRows {
				return domainerrors.NewNotFoundError("earmark", id)
			}
			return wrapStoreErr("cancel earmark", err)
		}
		st := rebalance.EarmarkStatus(prior)
		if st == rebalance.EarmarkCompleted || st == rebalance.EarmarkCancelled || st == rebalance.EarmarkExpired {
			return domainerrors.NewPreconditionError(fmt.Sprintf("earmark %s is already %s", id, prior))
		}

		now := time.Now().UTC()
		if _, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE earmarks SET status = $2, updated_at = $3 WHERE id = $1
		`, id, string(rebalance.EarmarkCancelled), now); err != nil {
			return wrapStoreErr("cancel earmark", err)
		}

		if _, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE rebalance_operations
			SET is_orphaned = TRUE, updated_at = $2
			WHERE earmark_id = $1 AND status NOT IN ($3, $4, $5, $6)
		`, id, now, string(rebalance.OperationCompleted), string(rebalance.OperationCancelled), string(rebalance.OperationExpired), string(rebalance.OperationFailed)); err != nil {
			return wrapStoreErr("orphan sibling operations", err)
		}

		return s.appendAudit(ctx, rebalance.AuditActionEarmark, id, "cancel", prior, string(rebalance.EarmarkCancelled), reason)
	})
}

// DeleteEarmark cascades: deletes every child operation, then the
// earmark itself, then writes one audit row — all in one transaction
// (spec §6's "cascading delete of an earmark ... in the same
// transaction and writes one audit row").
func (s *Store) DeleteEarmark(ctx context.Context, id, reason string) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		if _, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM rebalance_operations WHERE earmark_id = $1`, id); err != nil {
			return wrapStoreErr("delete child operations", err)
		}
		result, err := s.querier(ctx).ExecContext(ctx, `DELETE FROM earmarks WHERE id = $1`, id)
		if err != nil {
			return wrapStoreErr("delete earmark", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domainerrors.NewNotFoundError("earmark", id)
		}
		return s.appendAudit(ctx, rebalance.AuditActionEarmark, id, "delete", "", "", reason)
	})
}

// promoteEarmarkIfSiblingsSettled checks, within the caller's transaction,
// whether every operation attached to earmarkID is in
// {COMPLETED, CANCELLED, EXPIRED} with at least one COMPLETED, and if so
// promotes the earmark PENDING -> READY (spec §4.6 step 5, Testable
// Property 2). A non-terminal sibling or a FAILED sibling both block
// promotion — FAILED is terminal but is not one of the statuses Property
// 2 allows a READY earmark's children to hold. No-op if the earmark is
// not PENDING, any sibling is outside that allowed set, or every sibling
// settled without a single COMPLETED among them.
func (s *Store) promoteEarmarkIfSiblingsSettled(ctx context.Context, earmarkID string) error {
	var blocking, completed int
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status NOT IN ($2, $3, $4)),
			COUNT(*) FILTER (WHERE status = $2)
		FROM rebalance_operations
		WHERE earmark_id = $1
	`, earmarkID,
		string(rebalance.OperationCompleted),
		string(rebalance.OperationCancelled),
		string(rebalance.OperationExpired))
	if err := row.Scan(&blocking, &completed); err != nil {
		return wrapStoreErr("check sibling operations", err)
	}
	if blocking > 0 || completed == 0 {
		return nil
	}

	var prior string
	erow := s.querier(ctx).QueryRowContext(ctx, `SELECT status FROM earmarks WHERE id = $1 FOR UPDATE`, earmarkID)
	if err := erow.Scan(&prior); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return wrapStoreErr("load earmark for promotion", err)
	}
	if prior != string(rebalance.EarmarkPending) {
		return nil
	}

	now := time.Now().UTC()
	if _, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE earmarks SET status = $2, updated_at = $3 WHERE id = $1
	`, earmarkID, string(rebalance.EarmarkReady), now); err != nil {
		return wrapStoreErr("promote earmark", err)
	}
	return s.appendAudit(ctx, rebalance.AuditActionEarmark, earmarkID, "promote", prior, string(rebalance.EarmarkReady), "all sibling operations settled, at least one completed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEarmark(row rowScanner) (rebalance.Earmark, error) {
	var (
		e         rebalance.Earmark
		status    string
		minAmount string
	)
	if err := row.Scan(&e.ID, &e.InvoiceID, &e.DesignatedPurchaseChain, &e.TickerHash, &minAmount, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return rebalance.Earmark{}, err
	}
	amt, ok := new(big.Int).SetString(minAmount, 10)
	if !ok {
		return rebalance.Earmark{}, fmt.Errorf("earmark %s: invalid min_amount %q", e.ID, minAmount)
	}
	e.MinAmount = amt
	e.Status = rebalance.EarmarkStatus(status)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
