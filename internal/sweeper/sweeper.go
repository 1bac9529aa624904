// Package sweeper implements the Recovery/Expiry Sweeper (spec.md §4.7):
// on startup and each tick, earmarks and standalone operations that have
// outlived their TTL are moved to EXPIRED, grounded on the teacher's
// dead-letter TTL promotion in
// packages/com.r3e.services.gasbank/service/settlement.go
// (shouldDeadLetter/promoteDeadLetter), adapted from a withdrawal
// dead-letter model to earmark/operation expiry.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/everclearorg/mark-sub000/infrastructure/logging"
)

// Store is the subset of the Operation Store the sweeper calls.
type Store interface {
	ExpireStaleEarmarks(ctx context.Context, olderThan time.Time) ([]string, error)
	ExpireStaleStandaloneOperations(ctx context.Context, olderThan time.Time) ([]string, error)
}

// Metrics is the subset of internal/metrics.Metrics the sweeper records
// against. Left nil, no metric is recorded.
type Metrics interface {
	RecordSweeperExpired(service, kind string, count int)
}

// Config configures the sweeper's TTL windows. Earmarks and standalone
// operations age out independently (an earmark waits on an invoice that
// may sit open far longer than an in-flight bridge transfer should), so
// each pass gets its own TTL rather than sharing one window.
type Config struct {
	Store        Store
	EarmarkTTL   time.Duration
	OperationTTL time.Duration
	Logger       *logging.Logger
	Metrics      Metrics
	// ServiceName labels recorded metrics; defaults to "rebalancer".
	ServiceName string
}

// Sweeper expires stale earmarks and standalone operations.
type Sweeper struct {
	cfg Config
}

// New builds a Sweeper from cfg. A non-positive TTL defaults to 24h,
// matching a typical invoice age window (spec §4.7 names this as an
// example, not a fixed constant).
func New(cfg Config) *Sweeper {
	if cfg.EarmarkTTL <= 0 {
		cfg.EarmarkTTL = 24 * time.Hour
	}
	if cfg.OperationTTL <= 0 {
		cfg.OperationTTL = 24 * time.Hour
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rebalancer"
	}
	return &Sweeper{cfg: cfg}
}

// Sweep runs both expiry passes (spec §4.7), run on startup and every
// tick by the orchestrator engine.
func (s *Sweeper) Sweep(ctx context.Context) error {
	earmarkOlderThan := time.Now().UTC().Add(-s.cfg.EarmarkTTL)

	expiredEarmarks, err := s.cfg.Store.ExpireStaleEarmarks(ctx, earmarkOlderThan)
	if err != nil {
		return fmt.Errorf("sweeper: expiring stale earmarks: %w", err)
	}
	if len(expiredEarmarks) > 0 {
		s.infof(ctx, "expired %d stale earmark(s)", len(expiredEarmarks))
	}
	s.recordExpired("earmark", len(expiredEarmarks))

	opOlderThan := time.Now().UTC().Add(-s.cfg.OperationTTL)

	expiredOps, err := s.cfg.Store.ExpireStaleStandaloneOperations(ctx, opOlderThan)
	if err != nil {
		return fmt.Errorf("sweeper: expiring stale standalone operations: %w", err)
	}
	if len(expiredOps) > 0 {
		s.infof(ctx, "expired %d stale standalone operation(s)", len(expiredOps))
	}
	s.recordExpired("operation", len(expiredOps))

	return nil
}

func (s *Sweeper) recordExpired(kind string, count int) {
	if s.cfg.Metrics == nil {
		return
	}
	s.cfg.Metrics.RecordSweeperExpired(s.cfg.ServiceName, kind, count)
}

func (s *Sweeper) infof(ctx context.Context, msg string, args ...any) {
	if s.cfg.Logger == nil {
		return
	}
	s.cfg.Logger.WithContext(ctx).Infof(msg, args...)
}
