package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type pauseState struct {
	Key    string `json:"key"`
	Paused bool   `json:"paused"`
}

// listPauses handles GET /api/v1/pauses, reporting all three gates (spec
// §6's pause surface: rebalance, ondemand, purchase).
func (h *handler) listPauses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rebalance, err := h.pauses.RebalancePaused(ctx)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	onDemand, err := h.pauses.OnDemandPaused(ctx)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	purchase, err := h.pauses.PurchasePaused(ctx)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, []pauseState{
		{Key: "rebalance", Paused: rebalance},
		{Key: "ondemand", Paused: onDemand},
		{Key: "purchase", Paused: purchase},
	})
}

// setPause handles POST /api/v1/pauses/{key}/pause and .../unpause.
func (h *handler) setPause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if err := h.applyPause(r.Context(), key, paused); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, pauseState{Key: key, Paused: paused})
	}
}

func (h *handler) applyPause(ctx context.Context, key string, paused bool) error {
	switch key {
	case "rebalance":
		return h.pauses.SetRebalancePaused(ctx, paused)
	case "ondemand":
		return h.pauses.SetOnDemandPaused(ctx, paused)
	case "purchase":
		return h.pauses.SetPurchasePaused(ctx, paused)
	default:
		return fmt.Errorf("unknown pause key %q", key)
	}
}
