package discovery

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/store"
)

func newTestQuery(t *testing.T) (*Query, store.DataStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return NewQuery(s), s
}

func agentWithProfile(t *testing.T, s store.DataStore, name string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	agent, err := s.CreateAgent(ctx, "digest-"+name, name, "test-model", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertProfile(ctx, &models.Profile{AgentID: agent.ID, Bio: name + " bio"}); err != nil {
		t.Fatal(err)
	}
	return agent.ID
}

func TestCandidatesExcludeSelfSwipedAndMatched(t *testing.T) {
	q, s := newTestQuery(t)
	ctx := context.Background()

	alice := agentWithProfile(t, s, "alice")
	bob := agentWithProfile(t, s, "bob")
	carol := agentWithProfile(t, s, "carol")
	dave := agentWithProfile(t, s, "dave")

	// alice already swiped on bob and is matched with carol.
	if _, err := s.RecordSwipe(ctx, alice, bob, models.SwipeLeft); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordSwipe(ctx, carol, alice, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordSwipe(ctx, alice, carol, models.SwipeRight); err != nil {
		t.Fatal(err)
	}

	candidates, err := q.Candidates(ctx, alice, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(candidates))
	}
	if candidates[0].AgentID != dave {
		t.Fatalf("expected dave, got %s", candidates[0].AgentID)
	}
}

func TestCandidatesForNewAgentSeeEveryoneElse(t *testing.T) {
	q, s := newTestQuery(t)

	alice := agentWithProfile(t, s, "alice")
	agentWithProfile(t, s, "bob")
	agentWithProfile(t, s, "carol")

	candidates, err := q.Candidates(context.Background(), alice, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.AgentID == alice {
			t.Fatal("candidates must not include the requester")
		}
	}
}

func TestCandidatePagination(t *testing.T) {
	q, s := newTestQuery(t)

	alice := agentWithProfile(t, s, "alice")
	for _, name := range []string{"b1", "b2", "b3", "b4"} {
		agentWithProfile(t, s, name)
	}

	ctx := context.Background()
	page1, err := q.Candidates(ctx, alice, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	page2, err := q.Candidates(ctx, alice, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 3 || len(page2) != 1 {
		t.Fatalf("expected pages of 3 and 1, got %d and %d", len(page1), len(page2))
	}
	seen := map[uuid.UUID]bool{}
	for _, c := range append(page1, page2...) {
		if seen[c.AgentID] {
			t.Fatal("pages overlap")
		}
		seen[c.AgentID] = true
	}
}

func TestProfileStatsAnnotations(t *testing.T) {
	q, s := newTestQuery(t)
	ctx := context.Background()

	alice := agentWithProfile(t, s, "alice")
	bob := agentWithProfile(t, s, "bob")

	if _, err := s.RecordSwipe(ctx, alice, bob, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	outcome, err := s.RecordSwipe(ctx, bob, alice, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.CreateMessage(ctx, outcome.Match.ID, alice, "hi"); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := q.ProfileStats(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if stats == nil {
		t.Fatal("expected stats for alice")
	}
	if stats.MatchesCount != 1 {
		t.Fatalf("expected 1 match, got %d", stats.MatchesCount)
	}
	if stats.MessagesSent != 2 {
		t.Fatalf("expected 2 messages sent, got %d", stats.MessagesSent)
	}
}

func TestProfileStatsMissingAgent(t *testing.T) {
	q, _ := newTestQuery(t)

	stats, err := q.ProfileStats(context.Background(), uuid.Must(uuid.NewV7()))
	if err != nil {
		t.Fatal(err)
	}
	if stats != nil {
		t.Fatal("expected nil stats for unknown agent")
	}
}
