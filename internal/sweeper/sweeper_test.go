package sweeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/everclearorg/mark-sub000/internal/sweeper"
)

type fakeStore struct {
	expiredEarmarks []string
	expiredOps      []string
	earmarkErr      error
	opErr           error
	calledEarmarkAt time.Time
	calledOpAt      time.Time
}

func (f *fakeStore) ExpireStaleEarmarks(ctx context.Context, olderThan time.Time) ([]string, error) {
	f.calledEarmarkAt = olderThan
	return f.expiredEarmarks, f.earmarkErr
}

func (f *fakeStore) ExpireStaleStandaloneOperations(ctx context.Context, olderThan time.Time) ([]string, error) {
	f.calledOpAt = olderThan
	return f.expiredOps, f.opErr
}

func TestSweepRunsBothExpiryPasses(t *testing.T) {
	store := &fakeStore{expiredEarmarks: []string{"e1"}, expiredOps: []string{"op1", "op2"}}
	s := sweeper.New(sweeper.Config{Store: store, EarmarkTTL: time.Hour, OperationTTL: 2 * time.Hour})

	require.NoError(t, s.Sweep(context.Background()))
	require.WithinDuration(t, time.Now().UTC().Add(-time.Hour), store.calledEarmarkAt, time.Second)
	require.WithinDuration(t, time.Now().UTC().Add(-2*time.Hour), store.calledOpAt, time.Second)
}

func TestSweepStopsAtFirstErrorFromEarmarkExpiry(t *testing.T) {
	store := &fakeStore{earmarkErr: context.DeadlineExceeded}
	s := sweeper.New(sweeper.Config{Store: store, EarmarkTTL: time.Hour, OperationTTL: time.Hour})

	err := s.Sweep(context.Background())
	require.Error(t, err)
	require.True(t, store.calledOpAt.IsZero())
}

func TestSweepDefaultsTTLWhenUnset(t *testing.T) {
	store := &fakeStore{}
	s := sweeper.New(sweeper.Config{Store: store})

	require.NoError(t, s.Sweep(context.Background()))
	require.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), store.calledEarmarkAt, time.Minute)
	require.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), store.calledOpAt, time.Minute)
}
