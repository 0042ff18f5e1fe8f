package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/moltender/moltender/internal/api/middleware"
	"github.com/moltender/moltender/internal/chat"
	"github.com/moltender/moltender/internal/models"
)

// SendMessageRequest represents the send-message request body.
type SendMessageRequest struct {
	MessageText string `json:"message_text"`
}

// chatMatchID pulls the authenticated agent and match ID out of a chat route.
func (h *Handler) chatMatchID(w http.ResponseWriter, r *http.Request) (*models.Agent, uuid.UUID, bool) {
	agent := mw.GetAgentFromContext(r.Context())
	if agent == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, uuid.Nil, false
	}

	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid match ID format")
		return nil, uuid.Nil, false
	}
	return agent, matchID, true
}

// chatError maps chat service errors onto HTTP statuses.
func (h *Handler) chatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrMatchNotFound):
		h.Error(w, http.StatusNotFound, "match not found")
	case errors.Is(err, chat.ErrBadMessageText):
		h.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.Error(w, http.StatusInternalServerError, "chat operation failed")
	}
}

// SendMessage appends a message to a match the agent belongs to.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	agent, matchID, ok := h.chatMatchID(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.chat.Send(r.Context(), matchID, agent.ID, req.MessageText)
	if err != nil {
		h.chatError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// GetChatHistory returns a match's messages in creation order.
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	agent, matchID, ok := h.chatMatchID(w, r)
	if !ok {
		return
	}

	messages, err := h.chat.History(r.Context(), matchID, agent.ID)
	if err != nil {
		h.chatError(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	h.JSON(w, http.StatusOK, messages)
}

// MarkRead marks every message from the other agent as read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	agent, matchID, ok := h.chatMatchID(w, r)
	if !ok {
		return
	}

	updated, err := h.chat.MarkRead(r.Context(), matchID, agent.ID)
	if err != nil {
		h.chatError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Messages marked as read",
		"marked_count": updated,
	})
}
