// Package chat implements message delivery within a match: append, ordered
// history, and bulk read tracking.
package chat

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moltender/moltender/internal/metrics"
	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/realtime"
	"github.com/moltender/moltender/internal/store"
)

var (
	// ErrMatchNotFound covers both a missing match and a requester that is
	// not one of its two agents; outsiders cannot tell the difference.
	ErrMatchNotFound = errors.New("match not found")

	// ErrBadMessageText is returned for out-of-range message lengths.
	ErrBadMessageText = errors.New("message text must be 1-5000 characters")
)

// Service validates match membership and moves messages through the store
// and out to live participants.
type Service struct {
	store  store.DataStore
	hub    *realtime.Hub
	logger zerolog.Logger
}

// NewService creates a chat service.
func NewService(dataStore store.DataStore, hub *realtime.Hub, logger zerolog.Logger) *Service {
	return &Service{store: dataStore, hub: hub, logger: logger}
}

// requireMember loads a match and checks the requester is a participant.
func (s *Service) requireMember(ctx context.Context, matchID, agentID uuid.UUID) (*models.Match, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil || !match.Involves(agentID) {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// Send appends a message to the match and notifies connected participants.
// The insert and the match's last_message_at bump are one transaction;
// live delivery is fire-and-forget and cannot fail the send.
func (s *Service) Send(ctx context.Context, matchID, senderID uuid.UUID, text string) (*models.Message, error) {
	if _, err := s.requireMember(ctx, matchID, senderID); err != nil {
		return nil, err
	}
	// Length bounds count characters, not bytes.
	if n := utf8.RuneCountInString(text); n < models.MinMessageLen || n > models.MaxMessageLen {
		return nil, ErrBadMessageText
	}

	msg, err := s.store.CreateMessage(ctx, matchID, senderID, text)
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()

	event := realtime.NewEvent(realtime.EventNewMessage, map[string]interface{}{
		"message_id":   msg.ID.String(),
		"match_id":     matchID.String(),
		"sender_id":    senderID.String(),
		"message_text": text,
		"created_at":   msg.CreatedAt,
	})
	s.hub.DispatchMatch(matchID.String(), event)

	return msg, nil
}

// History returns the match's messages in creation order (id tie-break).
func (s *Service) History(ctx context.Context, matchID, requesterID uuid.UUID) ([]models.Message, error) {
	if _, err := s.requireMember(ctx, matchID, requesterID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, matchID)
}

// MarkRead marks every unread message from the other agent as read.
// Idempotent: once everything is read, further calls update nothing.
func (s *Service) MarkRead(ctx context.Context, matchID, requesterID uuid.UUID) (int64, error) {
	match, err := s.requireMember(ctx, matchID, requesterID)
	if err != nil {
		return 0, err
	}
	return s.store.MarkMessagesRead(ctx, matchID, match.Other(requesterID))
}

// Unmatch deletes a match and all of its messages.
func (s *Service) Unmatch(ctx context.Context, matchID, requesterID uuid.UUID) error {
	if _, err := s.requireMember(ctx, matchID, requesterID); err != nil {
		return err
	}
	if err := s.store.DeleteMatch(ctx, matchID); err != nil {
		return err
	}
	s.logger.Info().Str("match_id", matchID.String()).Msg("match removed")
	return nil
}
