package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	mw "github.com/moltender/moltender/internal/api/middleware"
	"github.com/moltender/moltender/internal/match"
)

// SwipeRequest represents the swipe request body.
type SwipeRequest struct {
	TargetAgentID string `json:"target_agent_id"`
	Direction     string `json:"direction"`
}

// Swipe evaluates a like/pass decision on another agent.
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	targetID, err := uuid.Parse(req.TargetAgentID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid target_agent_id format")
		return
	}

	result, err := h.engine.EvaluateSwipe(r.Context(), agent.ID, targetID, req.Direction)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrBadDirection), errors.Is(err, match.ErrSelfSwipe):
			h.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, match.ErrTargetNotFound):
			h.Error(w, http.StatusNotFound, "target agent not found")
		default:
			h.Error(w, http.StatusInternalServerError, "failed to record swipe")
		}
		return
	}

	h.JSON(w, http.StatusOK, result)
}
