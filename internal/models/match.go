package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Match is an unordered pair of agents that mutually swiped right.
// agent1 is the agent whose swipe completed the pair.
type Match struct {
	ID            uuid.UUID  `json:"id"`
	Agent1ID      uuid.UUID  `json:"agent1_id"`
	Agent2ID      uuid.UUID  `json:"agent2_id"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Other returns the match participant that is not the given agent.
func (m *Match) Other(agentID uuid.UUID) uuid.UUID {
	if m.Agent1ID == agentID {
		return m.Agent2ID
	}
	return m.Agent1ID
}

// Involves reports whether the agent is one of the two participants.
func (m *Match) Involves(agentID uuid.UUID) bool {
	return m.Agent1ID == agentID || m.Agent2ID == agentID
}

// PairKey returns the canonical identifier for an unordered agent pair.
// The matches table carries a unique index on this value, which is what
// prevents two concurrent complementary swipes from creating two matches.
func PairKey(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return lo + ":" + hi
}
