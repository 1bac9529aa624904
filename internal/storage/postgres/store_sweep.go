package postgres

import (
	"context"
	"time"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// ExpireStaleEarmarks implements spec §4.7's first bullet: every earmark
// in {PENDING, READY} older than olderThan is set EXPIRED, and its
// non-terminal child operations are marked isOrphaned=true. Each earmark
// is expired in its own transaction, so earmarks expired before a failure
// stay expired; the first earmark that fails to expire ends the sweep.
// Returns the ids actually expired, along with that error if any.
func (s *Store) ExpireStaleEarmarks(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id FROM earmarks
		WHERE status IN ($1, $2) AND created_at < $3
	`, string(rebalance.EarmarkPending), string(rebalance.EarmarkReady), olderThan)
	if err != nil {
		return nil, wrapStoreErr("query stale earmarks", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, wrapStoreErr("query stale earmarks", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapStoreErr("query stale earmarks", err)
	}
	rows.Close()

	var expired []string
	for _, id := range ids {
		if err := s.expireOneEarmark(ctx, id); err != nil {
			return expired, err
		}
		expired = append(expired, id)
	}
	return expired, nil
}

func (s *Store) expireOneEarmark(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		var prior string
		row := s.querier(ctx).QueryRowContext(ctx, `SELECT status FROM earmarks WHERE id = $1 FOR UPDATE`, id)
		if err := row.Scan(&prior); err != nil {
			return wrapStoreErr("expire earmark", err)
		}

		now := time.Now().UTC()
		if _, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE earmarks SET status = $2, updated_at = $3 WHERE id = $1
		`, id, string(rebalance.EarmarkExpired), now); err != nil {
			return wrapStoreErr("expire earmark", err)
		}

		if _, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE rebalance_operations
			SET is_orphaned = TRUE, updated_at = $2
			WHERE earmark_id = $1 AND status NOT IN ($3, $4, $5, $6)
		`, id, now, string(rebalance.OperationCompleted), string(rebalance.OperationCancelled), string(rebalance.OperationExpired), string(rebalance.OperationFailed)); err != nil {
			return wrapStoreErr("orphan expiring earmark's operations", err)
		}

		return s.appendAudit(ctx, rebalance.AuditActionEarmark, id, "expire", prior, string(rebalance.EarmarkExpired), "earmark TTL exceeded")
	})
}

// ExpireStaleStandaloneOperations implements spec §4.7's second bullet:
// every standalone (no earmark) operation in a non-terminal status
// older than olderThan is set EXPIRED. Returns the ids actually
// expired.
func (s *Store) ExpireStaleStandaloneOperations(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id FROM rebalance_operations
		WHERE earmark_id IS NULL AND status IN ($1, $2) AND created_at < $3
	`, string(rebalance.OperationPending), string(rebalance.OperationAwaitingCallback), olderThan)
	if err != nil {
		return nil, wrapStoreErr("query stale operations", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, wrapStoreErr("query stale operations", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapStoreErr("query stale operations", err)
	}
	rows.Close()

	var expired []string
	for _, id := range ids {
		if err := s.TransitionOperation(ctx, id, rebalance.OperationExpired, "operation TTL exceeded"); err != nil {
			return expired, err
		}
		expired = append(expired, id)
	}
	return expired, nil
}
