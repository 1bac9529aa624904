package postgres

import "context"

// schemaStatements are the idempotent DDL statements applied by
// EnsureSchema. No external migration tool is wired (see SPEC_FULL.md
// §2.2) so the store owns its own schema, mirroring the teacher's
// migrations.Apply shape but inlined since there is only one schema
// version to carry.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS earmarks (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL UNIQUE,
		designated_purchase_chain BIGINT NOT NULL,
		ticker_hash TEXT NOT NULL,
		min_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rebalance_operations (
		id TEXT PRIMARY KEY,
		earmark_id TEXT NULL REFERENCES earmarks(id),
		origin_chain_id BIGINT NOT NULL,
		destination_chain_id BIGINT NOT NULL,
		ticker_hash TEXT NOT NULL,
		amount TEXT NOT NULL,
		slippage BIGINT NOT NULL,
		status TEXT NOT NULL,
		bridge TEXT NOT NULL,
		recipient TEXT NOT NULL,
		transactions JSONB NOT NULL DEFAULT '{}',
		is_orphaned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rebalance_operations_earmark_id_idx ON rebalance_operations(earmark_id)`,
	`CREATE INDEX IF NOT EXISTS rebalance_operations_status_idx ON rebalance_operations(status)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		prior_status TEXT NOT NULL,
		new_status TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_log_entity_idx ON audit_log(entity_type, entity_id)`,
	`CREATE TABLE IF NOT EXISTS pauses (
		key TEXT PRIMARY KEY,
		paused BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema applies every CREATE TABLE/INDEX IF NOT EXISTS statement.
// Safe to call on every process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
