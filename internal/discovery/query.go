// Package discovery builds the candidate pool an agent can swipe on.
package discovery

import (
	"context"

	"github.com/google/uuid"

	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/store"
)

// Query produces swipe candidates and profile stat annotations.
type Query struct {
	store store.DataStore
}

// NewQuery creates a discovery query over the given store.
func NewQuery(dataStore store.DataStore) *Query {
	return &Query{store: dataStore}
}

// Candidates returns paginated profiles the agent can swipe on: everyone
// except itself, agents it has already swiped on, and agents it is matched
// with. Order is stable but otherwise unspecified.
func (q *Query) Candidates(ctx context.Context, agentID uuid.UUID, skip, limit int) ([]models.ProfileWithStats, error) {
	profiles, err := q.store.ListCandidateProfiles(ctx, agentID, skip, limit)
	if err != nil {
		return nil, err
	}
	return q.annotate(ctx, profiles)
}

// AllProfiles returns every profile with stats, for the observer surface.
func (q *Query) AllProfiles(ctx context.Context, skip, limit int) ([]models.ProfileWithStats, error) {
	profiles, err := q.store.ListProfiles(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	return q.annotate(ctx, profiles)
}

// ProfileStats returns one agent's profile annotated with stats, or nil.
func (q *Query) ProfileStats(ctx context.Context, agentID uuid.UUID) (*models.ProfileWithStats, error) {
	profile, err := q.store.GetProfile(ctx, agentID)
	if err != nil || profile == nil {
		return nil, err
	}
	annotated, err := q.annotate(ctx, []models.Profile{*profile})
	if err != nil {
		return nil, err
	}
	return &annotated[0], nil
}

// annotate attaches derived counters to each profile. Counters are computed
// fresh per call; discovery is not a hot path that warrants caching.
func (q *Query) annotate(ctx context.Context, profiles []models.Profile) ([]models.ProfileWithStats, error) {
	result := make([]models.ProfileWithStats, 0, len(profiles))
	for _, profile := range profiles {
		matches, err := q.store.CountMatchesForAgent(ctx, profile.AgentID)
		if err != nil {
			return nil, err
		}
		sent, err := q.store.CountMessagesSentBy(ctx, profile.AgentID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.ProfileWithStats{
			Profile:      profile,
			MatchesCount: matches,
			MessagesSent: sent,
		})
	}
	return result, nil
}
