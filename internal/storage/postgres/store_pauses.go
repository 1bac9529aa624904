package postgres

import (
	"context"
	"database/sql"
	"time"
)

// PauseKey identifies one of the three pause gates (spec §6's
// "pauses(key pk in {rebalance, ondemand, purchase} ...)").
type PauseKey string

const (
	PauseRebalance PauseKey = "rebalance"
	PauseOnDemand  PauseKey = "ondemand"
	PausePurchase  PauseKey = "purchase"
)

// IsPaused reports whether key is currently paused. An absent row (never
// set) reports false.
func (s *Store) IsPaused(ctx context.Context, key PauseKey) (bool, error) {
	var paused bool
	row := s.querier(ctx).QueryRowContext(ctx, `SELECT paused FROM pauses WHERE key = $1`, string(key))
	if err := row.Scan(&paused); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, wrapStoreErr("read pause", err)
	}
	return paused, nil
}

// SetPaused upserts the pause flag for key.
func (s *Store) SetPaused(ctx context.Context, key PauseKey, paused bool) error {
	now := time.Now().UTC()
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO pauses (key, paused, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET paused = EXCLUDED.paused, updated_at = EXCLUDED.updated_at
	`, string(key), paused, now)
	return wrapStoreErr("set pause", err)
}
