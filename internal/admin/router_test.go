package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/everclearorg/mark-sub000/internal/domain/errors"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
	"github.com/everclearorg/mark-sub000/internal/pause"
	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
)

type fakeAdminStore struct {
	earmarks     map[string]rebalance.Earmark
	operations   map[string]rebalance.Operation
	cancelEarmarkErr   error
	cancelOperationErr error
}

func (f *fakeAdminStore) ListEarmarks(ctx context.Context, filter postgres.EarmarkFilter) ([]rebalance.Earmark, error) {
	var out []rebalance.Earmark
	for _, e := range f.earmarks {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAdminStore) GetEarmark(ctx context.Context, id string) (rebalance.Earmark, error) {
	e, ok := f.earmarks[id]
	if !ok {
		return rebalance.Earmark{}, domainerrors.NewNotFoundError("earmark", id)
	}
	return e, nil
}

func (f *fakeAdminStore) CancelEarmark(ctx context.Context, id, reason string) error {
	return f.cancelEarmarkErr
}

func (f *fakeAdminStore) ListOperations(ctx context.Context, filter postgres.OperationFilter) ([]rebalance.Operation, error) {
	var out []rebalance.Operation
	for _, o := range f.operations {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeAdminStore) GetOperation(ctx context.Context, id string) (rebalance.Operation, error) {
	o, ok := f.operations[id]
	if !ok {
		return rebalance.Operation{}, domainerrors.NewNotFoundError("operation", id)
	}
	return o, nil
}

func (f *fakeAdminStore) CancelOperation(ctx context.Context, id, reason string) error {
	return f.cancelOperationErr
}

type fakePauseStore struct {
	paused map[postgres.PauseKey]bool
}

func (f *fakePauseStore) IsPaused(ctx context.Context, key postgres.PauseKey) (bool, error) {
	return f.paused[key], nil
}

func (f *fakePauseStore) SetPaused(ctx context.Context, key postgres.PauseKey, paused bool) error {
	if f.paused == nil {
		f.paused = make(map[postgres.PauseKey]bool)
	}
	f.paused[key] = paused
	return nil
}

func testServer(store Store, pauseStore *fakePauseStore) *Server {
	return New(":0", Config{
		Store:   store,
		Pauses:  pause.New(pauseStore),
		Log:     zerolog.Nop(),
		DevMode: true,
	})
}

func TestGetEarmarkReturns404WhenMissing(t *testing.T) {
	s := testServer(&fakeAdminStore{}, &fakePauseStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/earmarks/missing", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEarmarksReturnsStoredEarmarks(t *testing.T) {
	store := &fakeAdminStore{earmarks: map[string]rebalance.Earmark{
		"e1": {ID: "e1", InvoiceID: "inv1", Status: rebalance.EarmarkPending},
	}}
	s := testServer(store, &fakePauseStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/earmarks/", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out []rebalance.Earmark
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Len(t, out, 1)
	require.Equal(t, "inv1", out[0].InvoiceID)
}

func TestCancelOperationMapsPreconditionErrorTo409(t *testing.T) {
	store := &fakeAdminStore{
		operations:         map[string]rebalance.Operation{"op1": {ID: "op1", Status: rebalance.OperationCompleted}},
		cancelOperationErr: domainerrors.NewPreconditionError("operation op1 is in status COMPLETED, cannot cancel"),
	}
	s := testServer(store, &fakePauseStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations/op1/cancel", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSetAndListPausesRoundTrips(t *testing.T) {
	pauseStore := &fakePauseStore{paused: map[postgres.PauseKey]bool{}}
	s := testServer(&fakeAdminStore{}, pauseStore)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pauses/rebalance/pause", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, pauseStore.paused[postgres.PauseRebalance])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/pauses/", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var states []pauseState
	require.NoError(t, json.NewDecoder(w.Body).Decode(&states))
	require.Len(t, states, 3)
}

func TestSetPauseRejectsUnknownKey(t *testing.T) {
	s := testServer(&fakeAdminStore{}, &fakePauseStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pauses/bogus/pause", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
