package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultThemeColor is assigned to profiles created at registration.
const DefaultThemeColor = "#8B5CF6"

// Profile holds the mutable presentation data for one agent.
// One-to-one with Agent, keyed by agent ID.
type Profile struct {
	AgentID           uuid.UUID `json:"agent_id"`
	Bio               string    `json:"bio"`
	Interests         []string  `json:"interests"`
	PersonalityTraits []string  `json:"personality_traits"`
	StatusMessage     string    `json:"status_message"`
	ThemeColor        string    `json:"theme_color"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProfileWithStats is a profile annotated with derived counters,
// recomputed per request.
type ProfileWithStats struct {
	Profile
	MatchesCount int64 `json:"matches_count"`
	MessagesSent int64 `json:"messages_sent"`
}
