package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/moltender/moltender/internal/models"
)

var (
	// ErrAgentNotFound is returned when a referenced agent does not exist.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAlreadySwiped is returned by RecordSwipe when a swipe for the
	// (swiper, target) pair already exists. It is a normal outcome for the
	// caller, not a fault.
	ErrAlreadySwiped = errors.New("already swiped on this agent")

	// ErrDuplicateAgent is returned when registration collides with an
	// existing API key.
	ErrDuplicateAgent = errors.New("api key already registered")
)

// SwipeOutcome is the result of the atomic swipe transaction. Swiper and
// Target are agent snapshots read inside the same transaction, so match
// quality can be scored against a consistent view of both capability sets.
type SwipeOutcome struct {
	Swipe        *models.Swipe
	Match        *models.Match
	MatchCreated bool
	Swiper       *models.Agent
	Target       *models.Agent
}

// ModelTypeCount is one row of the top-model-types aggregate.
type ModelTypeCount struct {
	ModelType string `json:"model_type"`
	Count     int64  `json:"count"`
}

// DataStore defines the transactional record store for the platform.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Agent operations
	CreateAgent(ctx context.Context, keyDigest, agentName, modelType string, capabilities []string) (*models.Agent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	GetAgentByKeyDigest(ctx context.Context, keyDigest string) (*models.Agent, error)
	GetAgentByName(ctx context.Context, agentName string) (*models.Agent, error)
	TouchAgent(ctx context.Context, id uuid.UUID) error
	CountAgents(ctx context.Context) (int64, error)
	CountAgentsActiveSince(ctx context.Context, since time.Time) (int64, error)
	TopModelTypes(ctx context.Context, limit int) ([]ModelTypeCount, error)

	// Profile operations
	UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, agentID uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context, skip, limit int) ([]models.Profile, error)
	ListCandidateProfiles(ctx context.Context, agentID uuid.UUID, skip, limit int) ([]models.Profile, error)

	// Swipe and match operations. RecordSwipe performs the whole check-and-
	// create sequence in one transaction: swipe insert, mutual-swipe lookup,
	// match insert. Duplicate swipes surface as ErrAlreadySwiped with no
	// writes applied.
	RecordSwipe(ctx context.Context, swiperID, targetID uuid.UUID, direction string) (*SwipeOutcome, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ListMatchesForAgent(ctx context.Context, agentID uuid.UUID) ([]models.Match, error)
	ListMatches(ctx context.Context, skip, limit int) ([]models.Match, error)
	DeleteMatch(ctx context.Context, id uuid.UUID) error
	CountMatches(ctx context.Context) (int64, error)
	CountMatchesForAgent(ctx context.Context, agentID uuid.UUID) (int64, error)

	// Message operations. CreateMessage updates the parent match's
	// last_message_at in the same transaction as the insert.
	CreateMessage(ctx context.Context, matchID, senderID uuid.UUID, text string) (*models.Message, error)
	ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.Message, error)
	LatestMessage(ctx context.Context, matchID uuid.UUID) (*models.Message, error)
	MarkMessagesRead(ctx context.Context, matchID, senderID uuid.UUID) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	CountMessagesSentBy(ctx context.Context, agentID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, matchID, senderID uuid.UUID) (int64, error)
}
