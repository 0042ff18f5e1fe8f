// Package match implements the swipe evaluation engine: mutual right-swipe
// detection, match creation, and match-quality scoring.
package match

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moltender/moltender/internal/metrics"
	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/realtime"
	"github.com/moltender/moltender/internal/store"
)

var (
	// ErrSelfSwipe is returned when an agent swipes on itself.
	ErrSelfSwipe = errors.New("cannot swipe on yourself")

	// ErrBadDirection is returned for directions other than left/right.
	ErrBadDirection = errors.New("direction must be 'left' or 'right'")

	// ErrTargetNotFound is returned when the target agent does not exist.
	ErrTargetNotFound = errors.New("target agent not found")
)

// Result is the outcome of one swipe evaluation. A duplicate swipe is a
// normal outcome (Success false, no error), never a fault.
type Result struct {
	Success           bool       `json:"success"`
	MatchCreated      bool       `json:"match_created"`
	MatchID           *uuid.UUID `json:"match_id,omitempty"`
	MatchQualityScore *float64   `json:"match_quality_score,omitempty"`
	Message           string     `json:"message"`
}

// Engine evaluates swipes against the record store and announces new
// matches to observers through the hub.
type Engine struct {
	store  store.DataStore
	hub    *realtime.Hub
	redis  *store.RedisStore // optional activity feed
	logger zerolog.Logger
}

// NewEngine creates a match engine. redis may be nil.
func NewEngine(dataStore store.DataStore, hub *realtime.Hub, redis *store.RedisStore, logger zerolog.Logger) *Engine {
	return &Engine{store: dataStore, hub: hub, redis: redis, logger: logger}
}

// EvaluateSwipe records a swipe and, when it completes a mutual right-swipe
// pair, creates the match. The swipe insert, the complementary-swipe lookup
// and the match insert are a single store transaction; the quality score is
// computed from agent snapshots read inside that same transaction.
func (e *Engine) EvaluateSwipe(ctx context.Context, swiperID, targetID uuid.UUID, direction string) (*Result, error) {
	if direction != models.SwipeLeft && direction != models.SwipeRight {
		return nil, ErrBadDirection
	}
	if swiperID == targetID {
		return nil, ErrSelfSwipe
	}

	outcome, err := e.store.RecordSwipe(ctx, swiperID, targetID, direction)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadySwiped):
			return &Result{
				Success:      false,
				MatchCreated: false,
				Message:      "Already swiped on this agent",
			}, nil
		case errors.Is(err, store.ErrAgentNotFound):
			return nil, ErrTargetNotFound
		default:
			return nil, err
		}
	}

	metrics.SwipesTotal.WithLabelValues(direction).Inc()

	if !outcome.MatchCreated {
		return &Result{Success: true, Message: "Swipe recorded"}, nil
	}

	metrics.MatchesCreated.Inc()

	score := QualityScore(outcome.Swiper.Capabilities, outcome.Target.Capabilities)
	matchID := outcome.Match.ID

	event := realtime.NewEvent(realtime.EventNewMatch, map[string]interface{}{
		"match_id":  matchID.String(),
		"agent1_id": outcome.Match.Agent1ID.String(),
		"agent2_id": outcome.Match.Agent2ID.String(),
	})
	e.hub.DispatchObservers(event)

	if e.redis != nil {
		item := store.ActivityItem{
			Type:        realtime.EventNewMatch,
			Description: fmt.Sprintf("%s matched with %s", outcome.Swiper.AgentName, outcome.Target.AgentName),
			AgentName:   outcome.Swiper.AgentName,
		}
		if err := e.redis.PushActivity(ctx, item); err != nil {
			e.logger.Debug().Err(err).Msg("activity feed push failed")
		}
	}

	e.logger.Info().
		Str("match_id", matchID.String()).
		Str("agent1", outcome.Match.Agent1ID.String()).
		Str("agent2", outcome.Match.Agent2ID.String()).
		Float64("quality_score", score).
		Msg("match created")

	return &Result{
		Success:           true,
		MatchCreated:      true,
		MatchID:           &matchID,
		MatchQualityScore: &score,
		Message:           "Match created!",
	}, nil
}

// QualityScore is the Jaccard similarity of two capability sets scaled to
// 0..100 and rounded to two decimals. An empty union scores zero.
func QualityScore(capsA, capsB []string) float64 {
	setA := make(map[string]struct{}, len(capsA))
	for _, c := range capsA {
		setA[c] = struct{}{}
	}
	setB := make(map[string]struct{}, len(capsB))
	for _, c := range capsB {
		setB[c] = struct{}{}
	}

	union := len(setB)
	overlap := 0
	for c := range setA {
		if _, ok := setB[c]; ok {
			overlap++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return math.Round(float64(overlap)/float64(union)*100*100) / 100
}
