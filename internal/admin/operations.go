package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// listOperations handles GET /api/v1/operations, with optional status,
// chainId, earmarkId and standalone filters (spec §6's "parameterized
// filtered listing").
func (h *handler) listOperations(w http.ResponseWriter, r *http.Request) {
	filter := postgresOperationFilter(r.URL.Query())

	ops, err := h.store.ListOperations(r.Context(), filter)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ops)
}

// getOperation handles GET /api/v1/operations/{id}
func (h *handler) getOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op, err := h.store.GetOperation(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, op)
}

// cancelOperation handles POST /api/v1/operations/{id}/cancel. Spec §6:
// "operation must be in {PENDING, AWAITING_CALLBACK}".
func (h *handler) cancelOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "cancelled via admin surface"
	}
	if err := h.store.CancelOperation(r.Context(), id, reason); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(rebalance.OperationCancelled)})
}
