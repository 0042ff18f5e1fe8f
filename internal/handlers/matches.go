package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/moltender/moltender/internal/api/middleware"
	"github.com/moltender/moltender/internal/chat"
	"github.com/moltender/moltender/internal/models"
)

// MatchWithProfile is a match enriched for the match list view.
type MatchWithProfile struct {
	models.Match
	OtherAgent  *models.Agent `json:"other_agent,omitempty"`
	LastMessage string        `json:"last_message,omitempty"`
	UnreadCount int64         `json:"unread_count"`
}

// ListMatches returns the agent's matches with chat previews, most recently
// active first.
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	matches, err := h.store.ListMatchesForAgent(r.Context(), agent.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	result := make([]MatchWithProfile, 0, len(matches))
	for _, m := range matches {
		entry := MatchWithProfile{Match: m}
		otherID := m.Other(agent.ID)

		other, err := h.store.GetAgentByID(r.Context(), otherID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		entry.OtherAgent = other

		last, err := h.store.LatestMessage(r.Context(), m.ID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		if last != nil {
			entry.LastMessage = last.MessageText
		}

		unread, err := h.store.CountUnread(r.Context(), m.ID, otherID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		entry.UnreadCount = unread

		result = append(result, entry)
	}

	h.JSON(w, http.StatusOK, result)
}

// Unmatch deletes a match and its whole message history.
func (h *Handler) Unmatch(w http.ResponseWriter, r *http.Request) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid match ID format")
		return
	}

	if err := h.chat.Unmatch(r.Context(), matchID, agent.ID); err != nil {
		if errors.Is(err, chat.ErrMatchNotFound) {
			h.Error(w, http.StatusNotFound, "match not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to remove match")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"message": "Match removed successfully"})
}
