package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// appendAudit writes one append-only audit row. Callers always invoke
// this from inside the same transaction as the mutation it describes
// (spec §3's "Audit Log ... written in the same transaction as the
// mutation").
func (s *Store) appendAudit(ctx context.Context, action rebalance.AuditAction, entityID, actionLabel, priorStatus, newStatus, reason string) error {
	entry := rebalance.AuditLogEntry{
		ID:          uuid.NewString(),
		EntityID:    entityID,
		Action:      action,
		PriorStatus: priorStatus,
		NewStatus:   newStatus,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO audit_log (id, entity_type, entity_id, action, prior_status, new_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, string(entry.Action), entry.EntityID, actionLabel, entry.PriorStatus, entry.NewStatus, entry.Reason, entry.CreatedAt)
	return wrapStoreErr("append audit", err)
}

// ListAuditLog returns every audit row for a given entity, oldest first.
func (s *Store) ListAuditLog(ctx context.Context, action rebalance.AuditAction, entityID string) ([]rebalance.AuditLogEntry, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, entity_id, action, prior_status, new_status, reason, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`, string(action), entityID)
	if err != nil {
		return nil, wrapStoreErr("list audit log", err)
	}
	defer rows.Close()

	var out []rebalance.AuditLogEntry
	for rows.Next() {
		var (
			e          rebalance.AuditLogEntry
			actionType string
		)
		if err := rows.Scan(&e.ID, &e.EntityID, &actionType, &e.PriorStatus, &e.NewStatus, &e.Reason, &e.CreatedAt); err != nil {
			return nil, wrapStoreErr("list audit log", err)
		}
		e.Action = rebalance.AuditAction(actionType)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, wrapStoreErr("list audit log", rows.Err())
}
