package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	domainerrors "github.com/everclearorg/mark-sub000/internal/domain/errors"
	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
	"github.com/everclearorg/mark-sub000/internal/health"
	"github.com/everclearorg/mark-sub000/internal/pause"
	"github.com/everclearorg/mark-sub000/internal/storage/postgres"
)

// Store is the subset of *postgres.Store the admin surface depends on.
type Store interface {
	ListEarmarks(ctx context.Context, filter postgres.EarmarkFilter) ([]rebalance.Earmark, error)
	GetEarmark(ctx context.Context, id string) (rebalance.Earmark, error)
	CancelEarmark(ctx context.Context, id, reason string) error

	ListOperations(ctx context.Context, filter postgres.OperationFilter) ([]rebalance.Operation, error)
	GetOperation(ctx context.Context, id string) (rebalance.Operation, error)
	CancelOperation(ctx context.Context, id, reason string) error
}

type handler struct {
	store  Store
	pauses *pause.Registry
	health *health.Reporter
	log    zerolog.Logger
}

func (h *handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.health.Report(r.Context()))
}

// writeJSON matches the teacher-pack's Handler.writeJSON pattern
// (aristath-sentinel/trader-go/internal/modules/portfolio/handlers.go).
func (h *handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode json response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps a domain error to the right HTTP status: NotFoundError ->
// 404, PreconditionError -> 409, anything else -> 500 (spec §7: "precondition
// failures are never 5xx").
func (h *handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case domainerrors.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case domainerrors.IsPrecondition(err):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("admin handler error")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
