package postgres_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
)

func TestIsPausedAbsentRowReportsFalse(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT paused FROM pauses").
		WillReturnRows(sqlmock.NewRows(nil))

	paused, err := store.IsPaused(context.Background(), postgres.PauseRebalance)
	require.NoError(t, err)
	require.False(t, paused)
}

func TestIsPausedReturnsStoredValue(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT paused FROM pauses").
		WillReturnRows(sqlmock.NewRows([]string{"paused"}).AddRow(true))

	paused, err := store.IsPaused(context.Background(), postgres.PauseRebalance)
	require.NoError(t, err)
	require.True(t, paused)
}

func TestSetPausedUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO pauses").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SetPaused(context.Background(), postgres.PausePurchase, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
