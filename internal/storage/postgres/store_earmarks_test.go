package postgres_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/everclearorg/mark-sub000/internal/domain/errors"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
)

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.New(db), mock
}

func TestCreateEarmarkInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO earmarks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e, err := store.CreateEarmark(context.Background(), rebalance.Earmark{
		InvoiceID:               "inv-1",
		DesignatedPurchaseChain: 10,
		TickerHash:              "usdc",
		MinAmount:               big.NewInt(1000),
	})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.Equal(t, rebalance.EarmarkPending, e.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEarmarkDuplicateInvoiceIsPrecondition(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO earmarks").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := store.CreateEarmark(context.Background(), rebalance.Earmark{
		InvoiceID: "dup",
		MinAmount: big.NewInt(1),
	})
	require.Error(t, err)
	require.True(t, domainerrors.IsPrecondition(err))
}

func TestGetEarmarkNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM earmarks").
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := store.GetEarmark(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, domainerrors.IsNotFound(err))
}

func TestGetEarmarkScansRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM earmarks").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "invoice_id", "designated_purchase_chain", "ticker_hash", "min_amount", "status", "created_at", "updated_at",
		}).AddRow("e1", "inv-1", int64(10), "usdc", "1000", "PENDING", now, now))

	e, err := store.GetEarmark(context.Background(), "e1")
	require.NoError(t, err)
	require.Equal(t, "e1", e.ID)
	require.Equal(t, big.NewInt(1000), e.MinAmount)
	require.Equal(t, rebalance.EarmarkPending, e.Status)
}

func TestCancelEarmarkAlreadyTerminalIsPrecondition(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM earmarks").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("COMPLETED"))
	mock.ExpectRollback()

	err := store.CancelEarmark(context.Background(), "e1", "admin request")
	require.Error(t, err)
	require.True(t, domainerrors.IsPrecondition(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelEarmarkOrphansChildrenAndAudits(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM earmarks").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec("UPDATE earmarks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rebalance_operations").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.CancelEarmark(context.Background(), "e1", "admin request")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
