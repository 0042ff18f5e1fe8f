package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moltender/moltender/internal/models"
	"github.com/moltender/moltender/internal/realtime"
	"github.com/moltender/moltender/internal/store"
)

type chatFixture struct {
	svc     *Service
	store   store.DataStore
	alice   uuid.UUID
	bob     uuid.UUID
	outside uuid.UUID
	matchID uuid.UUID
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	newAgent := func(name string) uuid.UUID {
		agent, err := s.CreateAgent(ctx, "digest-"+name, name, "test-model", nil)
		if err != nil {
			t.Fatal(err)
		}
		return agent.ID
	}

	f := &chatFixture{
		svc:     NewService(s, realtime.NewHub(zerolog.Nop()), zerolog.Nop()),
		store:   s,
		alice:   newAgent("alice"),
		bob:     newAgent("bob"),
		outside: newAgent("mallory"),
	}

	if _, err := s.RecordSwipe(ctx, f.alice, f.bob, models.SwipeRight); err != nil {
		t.Fatal(err)
	}
	outcome, err := s.RecordSwipe(ctx, f.bob, f.alice, models.SwipeRight)
	if err != nil {
		t.Fatal(err)
	}
	f.matchID = outcome.Match.ID
	return f
}

func TestSendAndHistoryOrder(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	texts := []string{"hey", "hi!", "how's training going"}
	senders := []uuid.UUID{f.alice, f.bob, f.alice}
	for i, text := range texts {
		if _, err := f.svc.Send(ctx, f.matchID, senders[i], text); err != nil {
			t.Fatal(err)
		}
	}

	history, err := f.svc.History(ctx, f.matchID, f.bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, text := range texts {
		if history[i].MessageText != text {
			t.Fatalf("message %d out of order: got %q", i, history[i].MessageText)
		}
		if history[i].SenderID != senders[i] {
			t.Fatalf("message %d has wrong sender", i)
		}
	}
}

func TestSendByNonMember(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.Send(context.Background(), f.matchID, f.outside, "let me in")
	if err != ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestSendToMissingMatch(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.Send(context.Background(), uuid.Must(uuid.NewV7()), f.alice, "hello?")
	if err != ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestMessageLengthBounds(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, f.matchID, f.alice, ""); err != ErrBadMessageText {
		t.Fatalf("empty text: expected ErrBadMessageText, got %v", err)
	}

	long := strings.Repeat("x", models.MaxMessageLen+1)
	if _, err := f.svc.Send(ctx, f.matchID, f.alice, long); err != ErrBadMessageText {
		t.Fatalf("oversized text: expected ErrBadMessageText, got %v", err)
	}

	// Exactly at the limit is still valid.
	if _, err := f.svc.Send(ctx, f.matchID, f.alice, strings.Repeat("x", models.MaxMessageLen)); err != nil {
		t.Fatalf("max-length text should send: %v", err)
	}
}

func TestMessageLengthCountsRunesNotBytes(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// 3000 two-byte runes is 6000 bytes but well within the character limit.
	multibyte := strings.Repeat("é", 3000)
	if _, err := f.svc.Send(ctx, f.matchID, f.alice, multibyte); err != nil {
		t.Fatalf("multibyte text within limit should send: %v", err)
	}

	// At the limit in runes, over it in bytes.
	if _, err := f.svc.Send(ctx, f.matchID, f.alice, strings.Repeat("é", models.MaxMessageLen)); err != nil {
		t.Fatalf("max-length multibyte text should send: %v", err)
	}

	if _, err := f.svc.Send(ctx, f.matchID, f.alice, strings.Repeat("é", models.MaxMessageLen+1)); err != ErrBadMessageText {
		t.Fatalf("oversized multibyte text: expected ErrBadMessageText, got %v", err)
	}
}

func TestMarkReadOnlyCountersMessages(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// Two from alice, one from bob.
	for _, sender := range []uuid.UUID{f.alice, f.alice, f.bob} {
		if _, err := f.svc.Send(ctx, f.matchID, sender, "msg"); err != nil {
			t.Fatal(err)
		}
	}

	// Bob reads: alice's two messages flip, bob's own does not.
	marked, err := f.svc.MarkRead(ctx, f.matchID, f.bob)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 2 {
		t.Fatalf("expected 2 marked, got %d", marked)
	}

	marked, err = f.svc.MarkRead(ctx, f.matchID, f.bob)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 0 {
		t.Fatalf("repeat mark-read should be a no-op, got %d", marked)
	}

	history, err := f.svc.History(ctx, f.matchID, f.bob)
	if err != nil {
		t.Fatal(err)
	}
	for _, msg := range history {
		read := msg.ReadAt != nil
		fromAlice := msg.SenderID == f.alice
		if fromAlice != read {
			t.Fatalf("unexpected read state for message from %s: read=%v", msg.SenderID, read)
		}
	}
}

func TestMarkReadByNonMember(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.MarkRead(context.Background(), f.matchID, f.outside)
	if err != ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestUnmatchRemovesConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, f.matchID, f.alice, "goodbye"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Unmatch(ctx, f.matchID, f.bob); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.History(ctx, f.matchID, f.alice); err != ErrMatchNotFound {
		t.Fatalf("history after unmatch: expected ErrMatchNotFound, got %v", err)
	}

	count, err := f.store.CountMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected messages deleted with match, %d remain", count)
	}
}

func TestUnmatchByNonMember(t *testing.T) {
	f := newChatFixture(t)

	if err := f.svc.Unmatch(context.Background(), f.matchID, f.outside); err != ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}
