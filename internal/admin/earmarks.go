package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// listEarmarks handles GET /api/v1/earmarks?status=PENDING&status=READY&limit=&offset=
func (h *handler) listEarmarks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := postgresEarmarkFilter(q)

	earmarks, err := h.store.ListEarmarks(r.Context(), filter)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, earmarks)
}

// getEarmark handles GET /api/v1/earmarks/{id}
func (h *handler) getEarmark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	earmark, err := h.store.GetEarmark(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, earmark)
}

// cancelEarmark handles POST /api/v1/earmarks/{id}/cancel. Spec §6:
// "earmark must not be in {COMPLETED, CANCELLED, EXPIRED}".
func (h *handler) cancelEarmark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "cancelled via admin surface"
	}
	if err := h.store.CancelEarmark(r.Context(), id, reason); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(rebalance.EarmarkCancelled)})
}

func parseLimitOffset(q map[string][]string) (limit, offset int) {
	if v, ok := q["limit"]; ok && len(v) > 0 {
		limit, _ = strconv.Atoi(v[0])
	}
	if v, ok := q["offset"]; ok && len(v) > 0 {
		offset, _ = strconv.Atoi(v[0])
	}
	return limit, offset
}
