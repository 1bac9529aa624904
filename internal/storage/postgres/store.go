// Package postgres implements the Operation Store (spec.md §3/§6) against
// PostgreSQL using database/sql and lib/pq, following the teacher's
// BaseStore transaction-in-context pattern (pkg/storage/postgres/base_store.go)
// rather than an ORM.
package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	domainerrors "github.com/everclearorg/mark-sub000/internal/domain/errors"
)

// Store implements internal/orchestrator's store dependency and the
// Admin HTTP surface's read-side queries, backed by a single *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an already-open database handle. Callers own the handle's
// lifecycle (pooling, Close).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type txKey struct{}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

func contextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) querier(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// withTx runs fn inside a new transaction, committing on success and
// rolling back on any error fn returns. Every status-transition method in
// this package (store_earmarks.go, store_operations.go) uses this so the
// mutation and its audit row are written atomically, per spec.md §4.4's
// "every state transition is written ... in a single transaction that
// also appends an audit row".
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domainerrors.NewStoreError("begin tx", err)
	}
	if err := fn(contextWithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domainerrors.NewStoreError("commit tx", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), used to turn a duplicate invoice_id insert
// into a typed PreconditionError instead of a raw driver error.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return err
	}
	return domainerrors.NewStoreError(op, err)
}
