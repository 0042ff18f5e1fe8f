package models

import (
	"time"

	"github.com/google/uuid"
)

// Message text length bounds.
const (
	MinMessageLen = 1
	MaxMessageLen = 5000
)

// Message is an immutable chat entry within a match. read_at is the only
// mutable field and is set solely by the non-sender via bulk mark-read.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	MatchID     uuid.UUID  `json:"match_id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	MessageText string     `json:"message_text"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
