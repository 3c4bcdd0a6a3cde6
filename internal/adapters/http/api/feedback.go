// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rampagelabs/armory/internal/domain/feedback"
)

// likeRequest mirrors the POST body for /feedback/like/{entity}.
type likeRequest struct {
	Liked *bool `json:"liked"`
}

// voteRequest mirrors the POST body for /feedback/vote/{entity}. The
// direction must be "up" or "down"; repeating the held direction clears it.
type voteRequest struct {
	Vote string `json:"vote"`
}

// ratingRequest mirrors the POST body for /feedback/rating/{entity}. A
// null rating retracts the device's previous one.
type ratingRequest struct {
	Rating *int `json:"rating"`
}

// FeedbackHandler handles feedback reads and submissions.
type FeedbackHandler struct {
	deps Dependencies
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(deps Dependencies) *FeedbackHandler {
	return &FeedbackHandler{deps: deps}
}

// HandleFeedback handles GET and POST /feedback/{kind}/{entity} requests.
func (h *FeedbackHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	kind, entity, err := splitFeedbackPath(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	device, ok := deviceID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := h.deps.View(r.Context(), device, entity, kind)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPost:
		h.handleSubmit(w, r, device, entity, kind)
	default:
		http.NotFound(w, r)
	}
}

func (h *FeedbackHandler) handleSubmit(w http.ResponseWriter, r *http.Request, device, entity string, kind feedback.Kind) {
	switch kind {
	case feedback.KindLike:
		var req likeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Liked == nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		view, err := h.deps.SubmitLike(r.Context(), device, entity, *req.Liked)
		h.writeSubmitResult(w, view, err)
	case feedback.KindVote:
		var req voteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		intent, err := parseVoteIntent(req.Vote)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		view, err := h.deps.SubmitVote(r.Context(), device, entity, intent)
		h.writeSubmitResult(w, view, err)
	case feedback.KindRating:
		var req ratingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		view, err := h.deps.SubmitRating(r.Context(), device, entity, req.Rating)
		h.writeSubmitResult(w, view, err)
	default:
		// Presence changes only through live connections.
		http.NotFound(w, r)
	}
}

func (h *FeedbackHandler) writeSubmitResult(w http.ResponseWriter, view any, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		code := "internal"
		if errors.Is(err, feedback.ErrInvalidRating) {
			status = http.StatusBadRequest
			code = "bad_request"
		}
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// splitFeedbackPath parses /feedback/{kind}/{entity}.
func splitFeedbackPath(path string) (feedback.Kind, string, error) {
	rest := strings.TrimPrefix(path, "/feedback/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("expected /feedback/{kind}/{entity}")
	}
	kind, err := feedback.ParseKind(parts[0])
	if err != nil {
		return "", "", err
	}
	return kind, parts[1], nil
}

// parseVoteIntent maps the wire direction to an intent. Empty and "none"
// both clear an active vote.
func parseVoteIntent(s string) (feedback.VoteState, error) {
	if s == "" || s == "none" {
		return feedback.VoteNone, nil
	}
	return feedback.ParseVoteState(s)
}
