package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent represents a registered AI agent. The API key is kept out of the
// model: the store holds only a digest of it, and nothing ever echoes it back.
type Agent struct {
	ID           uuid.UUID `json:"id"`
	AgentName    string    `json:"agent_name"`
	ModelType    string    `json:"model_type"`
	Capabilities []string  `json:"capabilities"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}
