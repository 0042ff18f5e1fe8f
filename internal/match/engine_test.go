package match

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/realtime"
	"github.com/moltender/moltender/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.DataStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return NewEngine(s, realtime.NewHub(zerolog.Nop()), nil, zerolog.Nop()), s
}

func registerAgent(t *testing.T, s store.DataStore, name string, caps []string) uuid.UUID {
	t.Helper()
	agent, err := s.CreateAgent(context.Background(), "digest-"+name, name, "test-model", caps)
	if err != nil {
		t.Fatal(err)
	}
	return agent.ID
}

func TestMutualRightSwipeMatches(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	alice := registerAgent(t, s, "alice", []string{"reasoning"})
	bob := registerAgent(t, s, "bob", []string{"reasoning"})

	first, err := engine.EvaluateSwipe(ctx, alice, bob, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Success || first.MatchCreated {
		t.Fatalf("first swipe should record without matching: %+v", first)
	}

	second, err := engine.EvaluateSwipe(ctx, bob, alice, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	if !second.MatchCreated {
		t.Fatal("mutual right swipe should create a match")
	}
	if second.MatchID == nil {
		t.Fatal("expected match ID in result")
	}
	if second.MatchQualityScore == nil || *second.MatchQualityScore != 100 {
		t.Fatalf("identical capability sets should score 100, got %v", second.MatchQualityScore)
	}

	count, err := s.CountMatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one match, got %d", count)
	}
}

func TestDuplicateSwipeIsNoOp(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	alice := registerAgent(t, s, "alice", nil)
	bob := registerAgent(t, s, "bob", nil)

	if _, err := engine.EvaluateSwipe(ctx, alice, bob, models.SwipeRight); err != nil {
		t.Fatal(err)
	}

	result, err := engine.EvaluateSwipe(ctx, alice, bob, models.SwipeLeft)
	if err != nil {
		t.Fatalf("duplicate swipe must not be an error: %v", err)
	}
	if result.Success {
		t.Fatal("duplicate swipe should not report success")
	}
	if result.MatchCreated {
		t.Fatal("duplicate swipe should not create a match")
	}
}

func TestLeftSwipeNeverMatches(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	alice := registerAgent(t, s, "alice", nil)
	bob := registerAgent(t, s, "bob", nil)

	if _, err := engine.EvaluateSwipe(ctx, alice, bob, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	result, err := engine.EvaluateSwipe(ctx, bob, alice, models.SwipeLeft)
	if err != nil {
		t.Fatal(err)
	}
	if result.MatchCreated {
		t.Fatal("left swipe must never complete a match")
	}
}

func TestSelfSwipeRejected(t *testing.T) {
	engine, s := newTestEngine(t)
	alice := registerAgent(t, s, "alice", nil)

	_, err := engine.EvaluateSwipe(context.Background(), alice, alice, models.SwipeRight)
	if err != ErrSelfSwipe {
		t.Fatalf("expected ErrSelfSwipe, got %v", err)
	}
}

func TestBadDirectionRejected(t *testing.T) {
	engine, s := newTestEngine(t)
	alice := registerAgent(t, s, "alice", nil)
	bob := registerAgent(t, s, "bob", nil)

	_, err := engine.EvaluateSwipe(context.Background(), alice, bob, "up")
	if err != ErrBadDirection {
		t.Fatalf("expected ErrBadDirection, got %v", err)
	}
}

func TestSwipeOnMissingTarget(t *testing.T) {
	engine, s := newTestEngine(t)
	alice := registerAgent(t, s, "alice", nil)

	_, err := engine.EvaluateSwipe(context.Background(), alice, uuid.Must(uuid.NewV7()), models.SwipeRight)
	if err != ErrTargetNotFound {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name  string
		capsA []string
		capsB []string
		want  float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []string{"a"}, nil, 0},
		{"disjoint", []string{"a"}, []string{"b"}, 0},
		{"identical", []string{"a", "b"}, []string{"a", "b"}, 100},
		{"one of two shared", []string{"a", "b"}, []string{"a", "c"}, 33.33},
		{"half shared", []string{"a", "b"}, []string{"a"}, 50},
		{"duplicates ignored", []string{"a", "a", "b"}, []string{"a", "b", "b"}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QualityScore(tt.capsA, tt.capsB)
			if got != tt.want {
				t.Fatalf("QualityScore(%v, %v) = %v, want %v", tt.capsA, tt.capsB, got, tt.want)
			}
			if sym := QualityScore(tt.capsB, tt.capsA); sym != got {
				t.Fatalf("score is not symmetric: %v vs %v", got, sym)
			}
		})
	}
}
