package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/moltender/moltender/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func createTestAgent(t *testing.T, s *SQLiteStore, name string, caps []string) *models.Agent {
	t.Helper()
	agent, err := s.CreateAgent(context.Background(), "digest-"+name, name, "test-model", caps)
	if err != nil {
		t.Fatal(err)
	}
	return agent
}

func TestCreateAndGetAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent := createTestAgent(t, s, "alice", []string{"reasoning", "humor"})

	got, err := s.GetAgentByID(ctx, agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected agent, got nil")
	}
	if got.AgentName != "alice" {
		t.Fatalf("expected name alice, got %q", got.AgentName)
	}
	if len(got.Capabilities) != 2 {
		t.Fatalf("expected 2 capabilities, got %d", len(got.Capabilities))
	}

	byDigest, err := s.GetAgentByKeyDigest(ctx, "digest-alice")
	if err != nil {
		t.Fatal(err)
	}
	if byDigest == nil || byDigest.ID != agent.ID {
		t.Fatal("digest lookup did not return the same agent")
	}
}

func TestDuplicateKeyDigest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateAgent(ctx, "same-digest", "alice", "m", nil); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateAgent(ctx, "same-digest", "bob", "m", nil)
	if err != ErrDuplicateAgent {
		t.Fatalf("expected ErrDuplicateAgent, got %v", err)
	}
}

func TestGetMissingAgentReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetAgentByID(context.Background(), uuid.Must(uuid.NewV7()))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected nil for missing agent")
	}
}

func TestUpsertProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	agent := createTestAgent(t, s, "alice", nil)

	p1, err := s.UpsertProfile(ctx, &models.Profile{
		AgentID:   agent.ID,
		Bio:       "first bio",
		Interests: []string{"poetry"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p1.ThemeColor != models.DefaultThemeColor {
		t.Fatalf("expected default theme color, got %q", p1.ThemeColor)
	}

	p2, err := s.UpsertProfile(ctx, &models.Profile{
		AgentID:    agent.ID,
		Bio:        "second bio",
		ThemeColor: "#FF0000",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p2.Bio != "second bio" || p2.ThemeColor != "#FF0000" {
		t.Fatalf("upsert did not replace fields: %+v", p2)
	}

	total, err := s.ListProfiles(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(total) != 1 {
		t.Fatalf("expected one profile row, got %d", len(total))
	}
}

func TestMutualRightSwipeCreatesOneMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", nil)
	bob := createTestAgent(t, s, "bob", nil)

	first, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	if first.MatchCreated {
		t.Fatal("one-sided swipe should not create a match")
	}

	second, err := s.RecordSwipe(ctx, bob.ID, alice.ID, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	if !second.MatchCreated {
		t.Fatal("mutual right swipe should create a match")
	}
	if second.Match == nil {
		t.Fatal("expected match in outcome")
	}
	if !second.Match.Involves(alice.ID) || !second.Match.Involves(bob.ID) {
		t.Fatal("match does not involve both agents")
	}

	count, err := s.CountMatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one match, got %d", count)
	}
}

func TestLeftSwipeNeverMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", nil)
	bob := createTestAgent(t, s, "bob", nil)

	if _, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	outcome, err := s.RecordSwipe(ctx, bob.ID, alice.ID, models.SwipeLeft)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.MatchCreated {
		t.Fatal("left swipe must never create a match")
	}

	count, _ := s.CountMatches(ctx)
	if count != 0 {
		t.Fatalf("expected zero matches, got %d", count)
	}
}

func TestDuplicateSwipeRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", nil)
	bob := createTestAgent(t, s, "bob", nil)

	if _, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeLeft); err != nil {
		t.Fatal(err)
	}
	_, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeRight)
	if err != ErrAlreadySwiped {
		t.Fatalf("expected ErrAlreadySwiped, got %v", err)
	}

	// Opposite order is a distinct pair and still allowed.
	if _, err := s.RecordSwipe(ctx, bob.ID, alice.ID, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
}

func TestSwipeOnMissingAgent(t *testing.T) {
	s := newTestStore(t)
	alice := createTestAgent(t, s, "alice", nil)

	_, err := s.RecordSwipe(context.Background(), alice.ID, uuid.Must(uuid.NewV7()), models.SwipeRight)
	if err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestSwipeOutcomeCarriesSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", []string{"a", "b"})
	bob := createTestAgent(t, s, "bob", []string{"b", "c"})

	outcome, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Swiper == nil || outcome.Target == nil {
		t.Fatal("expected agent snapshots in outcome")
	}
	if len(outcome.Swiper.Capabilities) != 2 || len(outcome.Target.Capabilities) != 2 {
		t.Fatal("snapshots missing capabilities")
	}
}

func TestCandidateExclusions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", nil)
	bob := createTestAgent(t, s, "bob", nil)
	carol := createTestAgent(t, s, "carol", nil)
	dave := createTestAgent(t, s, "dave", nil)

	for _, a := range []*models.Agent{alice, bob, carol, dave} {
		if _, err := s.UpsertProfile(ctx, &models.Profile{AgentID: a.ID}); err != nil {
			t.Fatal(err)
		}
	}

	// alice swiped on bob, and is matched with carol.
	if _, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeLeft); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordSwipe(ctx, carol.ID, alice.ID, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordSwipe(ctx, alice.ID, carol.ID, models.SwipeRight); err != nil {
		t.Fatal(err)
	}

	candidates, err := s.ListCandidateProfiles(ctx, alice.ID, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(candidates))
	}
	if candidates[0].AgentID != dave.ID {
		t.Fatalf("expected dave as the only candidate, got %s", candidates[0].AgentID)
	}
}

func TestMessageOrderingAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", nil)
	bob := createTestAgent(t, s, "bob", nil)

	if _, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	outcome, err := s.RecordSwipe(ctx, bob.ID, alice.ID, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	matchID := outcome.Match.ID

	texts := []string{"hello", "hi there", "how are you"}
	for i, text := range texts {
		sender := alice.ID
		if i%2 == 1 {
			sender = bob.ID
		}
		if _, err := s.CreateMessage(ctx, matchID, sender, text); err != nil {
			t.Fatal(err)
		}
	}

	messages, err := s.ListMessages(ctx, matchID)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, text := range texts {
		if messages[i].MessageText != text {
			t.Fatalf("message %d out of order: got %q", i, messages[i].MessageText)
		}
	}

	latest, err := s.LatestMessage(ctx, matchID)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.MessageText != "how are you" {
		t.Fatalf("unexpected latest message: %+v", latest)
	}

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		t.Fatal(err)
	}
	if match.LastMessageAt == nil {
		t.Fatal("expected last_message_at to be set after sends")
	}
}

func TestMarkMessagesReadIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", nil)
	bob := createTestAgent(t, s, "bob", nil)

	if _, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	outcome, err := s.RecordSwipe(ctx, bob.ID, alice.ID, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	matchID := outcome.Match.ID

	for i := 0; i < 3; i++ {
		if _, err := s.CreateMessage(ctx, matchID, alice.ID, "ping"); err != nil {
			t.Fatal(err)
		}
	}

	unread, err := s.CountUnread(ctx, matchID, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 3 {
		t.Fatalf("expected 3 unread, got %d", unread)
	}

	marked, err := s.MarkMessagesRead(ctx, matchID, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 3 {
		t.Fatalf("expected 3 marked, got %d", marked)
	}

	marked, err = s.MarkMessagesRead(ctx, matchID, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 0 {
		t.Fatalf("second call should mark nothing, got %d", marked)
	}
}

func TestDeleteMatchCascadesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestAgent(t, s, "alice", nil)
	bob := createTestAgent(t, s, "bob", nil)

	if _, err := s.RecordSwipe(ctx, alice.ID, bob.ID, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	outcome, err := s.RecordSwipe(ctx, bob.ID, alice.ID, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	matchID := outcome.Match.ID

	if _, err := s.CreateMessage(ctx, matchID, alice.ID, "bye"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteMatch(ctx, matchID); err != nil {
		t.Fatal(err)
	}

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		t.Fatal(err)
	}
	if match != nil {
		t.Fatal("match should be gone")
	}

	count, err := s.CountMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected messages to cascade, %d remain", count)
	}
}

func TestTopModelTypes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, mt := range []string{"gpt", "gpt", "gpt", "claude", "claude", "llama"} {
		name := string(rune('a' + i))
		if _, err := s.CreateAgent(ctx, "d-"+name, name, mt, nil); err != nil {
			t.Fatal(err)
		}
	}

	top, err := s.TopModelTypes(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].ModelType != "gpt" || top[0].Count != 3 {
		t.Fatalf("unexpected top row: %+v", top[0])
	}
	if top[1].ModelType != "claude" || top[1].Count != 2 {
		t.Fatalf("unexpected second row: %+v", top[1])
	}
}

func TestPairKeyOrderIndependent(t *testing.T) {
	a := uuid.Must(uuid.NewV7())
	b := uuid.Must(uuid.NewV7())

	if models.PairKey(a, b) != models.PairKey(b, a) {
		t.Fatal("pair key must not depend on argument order")
	}
	if models.PairKey(a, b) == models.PairKey(a, a) {
		t.Fatal("distinct pairs must have distinct keys")
	}
}

func TestConcurrentMutualSwipesCreateOneMatch(t *testing.T) {
	ctx := context.Background()

	// A fresh pair per iteration; each round races the two complementary
	// right-swipes on separate goroutines. Exactly one of them may create
	// the match and neither may fail.
	for i := 0; i < 20; i++ {
		s := newTestStore(t)
		alice := createTestAgent(t, s, "alice", nil)
		bob := createTestAgent(t, s, "bob", nil)

		type result struct {
			outcome *SwipeOutcome
			err     error
		}
		results := make(chan result, 2)
		start := make(chan struct{})

		swipe := func(swiper, target uuid.UUID) {
			<-start
			out, err := s.RecordSwipe(ctx, swiper, target, models.SwipeRight)
			results <- result{out, err}
		}
		go swipe(alice.ID, bob.ID)
		go swipe(bob.ID, alice.ID)
		close(start)

		created := 0
		for j := 0; j < 2; j++ {
			r := <-results
			if r.err != nil {
				t.Fatalf("iteration %d: swipe failed: %v", i, r.err)
			}
			if r.outcome.MatchCreated {
				created++
				if r.outcome.Match == nil {
					t.Fatalf("iteration %d: created outcome carries no match", i)
				}
			}
		}
		if created != 1 {
			t.Fatalf("iteration %d: expected exactly one match creation, got %d", i, created)
		}

		count, err := s.CountMatchesForAgent(ctx, alice.ID)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Fatalf("iteration %d: expected 1 match in store, got %d", i, count)
		}
		s.Close()
	}
}
