package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// fakeConn records everything sent to it; fail makes every send error.
type fakeConn struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (c *fakeConn) SendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, v.(Event))
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestJoinLeaveMatch(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, b := &fakeConn{}, &fakeConn{}

	hub.JoinMatch(a, "m1")
	hub.JoinMatch(b, "m1")
	if hub.MatchConns("m1") != 2 {
		t.Fatalf("expected 2 conns, got %d", hub.MatchConns("m1"))
	}

	hub.LeaveMatch(a, "m1")
	if hub.MatchConns("m1") != 1 {
		t.Fatalf("expected 1 conn, got %d", hub.MatchConns("m1"))
	}

	// Last leaver drops the group entirely.
	hub.LeaveMatch(b, "m1")
	if hub.MatchConns("m1") != 0 {
		t.Fatal("expected empty group after last leave")
	}
	hub.mu.RLock()
	_, exists := hub.matches["m1"]
	hub.mu.RUnlock()
	if exists {
		t.Fatal("empty group should be removed from the registry")
	}
}

func TestLeaveUnknownMatchIsNoOp(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.LeaveMatch(&fakeConn{}, "never-joined")
}

func TestBroadcastMatchScoped(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	inRoom, otherRoom, observer := &fakeConn{}, &fakeConn{}, &fakeConn{}

	hub.JoinMatch(inRoom, "m1")
	hub.JoinMatch(otherRoom, "m2")
	hub.JoinObserver(observer)

	hub.BroadcastMatch("m1", NewEvent(EventNewMessage, map[string]interface{}{"k": "v"}))

	if inRoom.count() != 1 {
		t.Fatalf("expected 1 event for m1 member, got %d", inRoom.count())
	}
	if otherRoom.count() != 0 {
		t.Fatal("m2 member should not receive m1 events")
	}
	if observer.count() != 0 {
		t.Fatal("observers should not receive match-scoped events")
	}
}

func TestBroadcastObservers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	o1, o2, member := &fakeConn{}, &fakeConn{}, &fakeConn{}

	hub.JoinObserver(o1)
	hub.JoinObserver(o2)
	hub.JoinMatch(member, "m1")

	hub.BroadcastObservers(NewEvent(EventNewMatch, nil))

	if o1.count() != 1 || o2.count() != 1 {
		t.Fatal("all observers should receive the event")
	}
	if member.count() != 0 {
		t.Fatal("match members should not receive observer events")
	}

	hub.LeaveObserver(o1)
	hub.BroadcastObservers(NewEvent(EventNewMatch, nil))
	if o1.count() != 1 {
		t.Fatal("departed observer should not receive further events")
	}
	if o2.count() != 2 {
		t.Fatal("remaining observer should keep receiving")
	}
}

func TestBroadcastSurvivesFailingConn(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	broken := &fakeConn{fail: true}
	healthy := &fakeConn{}

	hub.JoinMatch(broken, "m1")
	hub.JoinMatch(healthy, "m1")

	hub.BroadcastMatch("m1", NewEvent(EventNewMessage, nil))

	if healthy.count() != 1 {
		t.Fatal("healthy conn should receive despite a failing peer")
	}
	// The failing conn stays registered; its owner deregisters it.
	if hub.MatchConns("m1") != 2 {
		t.Fatal("failing conn must not be evicted by the hub")
	}
}

func TestEventIDsAreOrderedAndUnique(t *testing.T) {
	e1 := NewEvent(EventNewMessage, nil)
	e2 := NewEvent(EventNewMessage, nil)

	if e1.ID == e2.ID {
		t.Fatal("event IDs must be unique")
	}
	if e2.ID < e1.ID {
		t.Fatal("event IDs must sort in creation order")
	}
}
