// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rampagelabs/armory/internal/domain/feedback"
	"github.com/rampagelabs/armory/internal/domain/model"
	"github.com/rampagelabs/armory/internal/domain/resolve"
)

// deviceHeader carries the caller's opaque device identity. Every
// feedback operation is keyed by it.
const deviceHeader = "X-Device-ID"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// LoadDataset parses and installs a raw game-master document.
	LoadDataset(ctx context.Context, data []byte) error

	// ResolveOffers runs the resolution pipeline against now.
	ResolveOffers(ctx context.Context, now time.Time) ([]model.ResolvedOffer, resolve.Batch, error)

	// Feedback submissions, keyed by device and entity.
	SubmitLike(ctx context.Context, device, entity string, liked bool) (feedback.LikeView, error)
	SubmitVote(ctx context.Context, device, entity string, intent feedback.VoteState) (feedback.VoteView, error)
	SubmitRating(ctx context.Context, device, entity string, rating *int) (feedback.RatingView, error)

	// View returns the one-shot merged view for a device and entity.
	View(ctx context.Context, device, entity string, kind feedback.Kind) (any, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	datasetHandler  *DatasetHandler
	offersHandler   *OffersHandler
	feedbackHandler *FeedbackHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxDatasetBytes int64) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		datasetHandler:  NewDatasetHandler(deps, maxDatasetBytes),
		offersHandler:   NewOffersHandler(deps),
		feedbackHandler: NewFeedbackHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/dataset", MetricsMiddleware(s.datasetHandler.HandlePostDataset, "dataset"))
	mux.HandleFunc("/offers", MetricsMiddleware(s.offersHandler.HandleGetOffers, "offers"))
	mux.HandleFunc("/feedback/", MetricsMiddleware(s.feedbackHandler.HandleFeedback, "feedback"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// deviceID extracts the caller's device identity, or fails the request.
func deviceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(deviceHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, "device_required", ErrDeviceRequired)
		return "", false
	}
	return id, true
}
