// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/rampagelabs/armory/internal/domain/resolve"
)

// DatasetHandler handles raw dataset uploads.
type DatasetHandler struct {
	deps     Dependencies
	maxBytes int64
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(deps Dependencies, maxBytes int64) *DatasetHandler {
	return &DatasetHandler{deps: deps, maxBytes: maxBytes}
}

// HandlePostDataset handles POST /dataset requests. The body is the raw
// game-master JSON document; it replaces the session dataset atomically.
func (h *DatasetHandler) HandlePostDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", ErrDatasetTooBig)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.deps.LoadDataset(r.Context(), data); err != nil {
		switch {
		case errors.Is(err, resolve.ErrMissingCollection), errors.Is(err, resolve.ErrInvalidDataset):
			writeError(w, http.StatusUnprocessableEntity, "invalid_dataset", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal", err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
