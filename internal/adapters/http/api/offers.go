// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rampagelabs/armory/internal/domain/model"
	"github.com/rampagelabs/armory/internal/domain/resolve"
)

// offersResponse carries the ordered pipeline output plus the upcoming
// batching split computed over it.
type offersResponse struct {
	Offers   []model.ResolvedOffer `json:"offers"`
	Upcoming resolve.Batch         `json:"upcoming"`
}

// OffersHandler handles resolved offer queries.
type OffersHandler struct {
	deps Dependencies
}

// NewOffersHandler creates a new offers handler.
func NewOffersHandler(deps Dependencies) *OffersHandler {
	return &OffersHandler{deps: deps}
}

// HandleGetOffers handles GET /offers requests. An optional ?at=RFC3339
// query overrides the evaluation instant, which makes availability windows
// testable without clock control.
func (h *OffersHandler) HandleGetOffers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	now := time.Now()
	if at := r.URL.Query().Get("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid at; must be RFC3339"))
			return
		}
		now = parsed
	}

	offers, batch, err := h.deps.ResolveOffers(r.Context(), now)
	if err != nil {
		writeError(w, http.StatusConflict, "no_dataset", err)
		return
	}
	if offers == nil {
		offers = []model.ResolvedOffer{}
	}
	writeJSON(w, http.StatusOK, offersResponse{Offers: offers, Upcoming: batch})
}
