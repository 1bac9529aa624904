package postgres_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/everclearorg/mark-sub000/internal/domain/errors"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
)

func TestCreateOperationDefaultsPendingAndAudits(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rebalance_operations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	op, err := store.CreateOperation(context.Background(), rebalance.Operation{
		OriginChainID:      1,
		DestinationChainID: 10,
		TickerHash:         "usdc",
		Amount:             big.NewInt(500),
		Slippage:           50,
		Bridge:             "across",
		Recipient:          "0xrecipient",
	})
	require.NoError(t, err)
	require.Equal(t, rebalance.OperationPending, op.Status)
	require.NotNil(t, op.Transactions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOperationScansTransactionsJSON(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM rebalance_operations WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "earmark_id", "origin_chain_id", "destination_chain_id", "ticker_hash",
			"amount", "slippage", "status", "bridge", "recipient", "transactions", "is_orphaned", "created_at", "updated_at",
		}).AddRow("op1", nil, int64(1), int64(10), "usdc", "500", int64(50), "AWAITING_CALLBACK", "across", "0xrecipient",
			[]byte(`{"1":{"transactionHash":"0xabc","blockNumber":5,"status":"success"}}`), false, now, now))

	op, err := store.GetOperation(context.Background(), "op1")
	require.NoError(t, err)
	require.Nil(t, op.EarmarkID)
	require.Equal(t, big.NewInt(500), op.Amount)
	receipt, ok := op.Transactions[1]
	require.True(t, ok)
	require.Equal(t, "0xabc", receipt.TransactionHash)
	require.True(t, receipt.Succeeded())
}

func TestTransitionOperationRejectsTerminal(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, earmark_id FROM rebalance_operations").
		WillReturnRows(sqlmock.NewRows([]string{"status", "earmark_id"}).AddRow("COMPLETED", nil))
	mock.ExpectRollback()

	err := store.TransitionOperation(context.Background(), "op1", rebalance.OperationFailed, "adapter reported permanent error")
	require.Error(t, err)
	require.True(t, domainerrors.IsPrecondition(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionOperationToCompletedPromotesEarmark(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, earmark_id FROM rebalance_operations").
		WillReturnRows(sqlmock.NewRows([]string{"status", "earmark_id"}).AddRow("AWAITING_CALLBACK", "e1"))
	mock.ExpectExec("UPDATE rebalance_operations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM rebalance_operations WHERE earmark_id").
		WillReturnRows(sqlmock.NewRows([]string{"blocking", "completed"}).AddRow(0, 1))
	mock.ExpectQuery("SELECT status FROM earmarks").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec("UPDATE earmarks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.TransitionOperation(context.Background(), "op1", rebalance.OperationCompleted, "destination callback confirmed")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOperationRejectsWrongStatus(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, earmark_id FROM rebalance_operations").
		WillReturnRows(sqlmock.NewRows([]string{"status", "earmark_id"}).AddRow("COMPLETED", nil))
	mock.ExpectRollback()

	err := store.CancelOperation(context.Background(), "op1", "admin request")
	require.Error(t, err)
	require.True(t, domainerrors.IsPrecondition(err))
}

// TestCancelOperationPromotesEarmarkWhenLastSiblingSettles exercises spec
// §8 seed scenario 5: an earmark with three children, two already
// COMPLETED, the third admin-cancelled. The cancel itself must settle the
// earmark the same way a COMPLETED transition would.
func TestCancelOperationPromotesEarmarkWhenLastSiblingSettles(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, earmark_id FROM rebalance_operations").
		WillReturnRows(sqlmock.NewRows([]string{"status", "earmark_id"}).AddRow("PENDING", "e1"))
	mock.ExpectExec("UPDATE rebalance_operations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM rebalance_operations WHERE earmark_id").
		WillReturnRows(sqlmock.NewRows([]string{"blocking", "completed"}).AddRow(0, 2))
	mock.ExpectQuery("SELECT status FROM earmarks").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec("UPDATE earmarks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.CancelOperation(context.Background(), "op3", "admin request")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestCancelOperationDoesNotPromoteWhenSiblingStillPending covers the
// complementary case: cancelling one of three children while another is
// still PENDING must not promote the earmark.
func TestCancelOperationDoesNotPromoteWhenSiblingStillPending(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, earmark_id FROM rebalance_operations").
		WillReturnRows(sqlmock.NewRows([]string{"status", "earmark_id"}).AddRow("PENDING", "e1"))
	mock.ExpectExec("UPDATE rebalance_operations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM rebalance_operations WHERE earmark_id").
		WillReturnRows(sqlmock.NewRows([]string{"blocking", "completed"}).AddRow(1, 1))
	mock.ExpectCommit()

	err := store.CancelOperation(context.Background(), "op2", "admin request")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendReceiptMergesIntoExistingMap(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT transactions FROM rebalance_operations").
		WillReturnRows(sqlmock.NewRows([]string{"transactions"}).
			AddRow([]byte(`{"1":{"transactionHash":"0xabc","blockNumber":1,"status":"success"}}`)))
	mock.ExpectExec("UPDATE rebalance_operations SET transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.AppendReceipt(context.Background(), "op1", 10, rebalance.Receipt{
		TransactionHash: "0xdef",
		BlockNumber:     2,
		Status:          "success",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOperationsAppliesPaginationDefaults(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM rebalance_operations").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "earmark_id", "origin_chain_id", "destination_chain_id", "ticker_hash",
			"amount", "slippage", "status", "bridge", "recipient", "transactions", "is_orphaned", "created_at", "updated_at",
		}))

	ops, err := store.ListOperations(context.Background(), postgres.OperationFilter{Limit: -1, Offset: -5})
	require.NoError(t, err)
	require.Empty(t, ops)
}
