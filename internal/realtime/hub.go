// Package realtime implements the live fan-out of platform events to
// connected websocket clients: one group per match for chat participants,
// plus a global observer group.
//
// Delivery is best-effort and at-most-once per connected socket. Nothing is
// persisted or replayed; a client that connects after an event fired must
// fetch history over HTTP.
package realtime

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Conn is a live client connection. A send failure must be reported via the
// returned error; the hub swallows it and keeps the connection registered
// until the owner explicitly leaves.
type Conn interface {
	SendJSON(v interface{}) error
}

// Event is the wire shape of every broadcast frame.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Event types emitted by the core services.
const (
	EventNewMessage = "new_message"
	EventNewMatch   = "new_match"
)

// NewEvent builds an event with a fresh time-ordered ID.
func NewEvent(eventType string, data map[string]interface{}) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Hub owns the connection registries. It is constructed once at server
// startup and injected into everything that broadcasts; tests build their
// own isolated instances.
type Hub struct {
	mu        sync.RWMutex
	matches   map[string]map[Conn]struct{}
	observers map[Conn]struct{}
	logger    zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		matches:   make(map[string]map[Conn]struct{}),
		observers: make(map[Conn]struct{}),
		logger:    logger,
	}
}

// JoinMatch registers a connection for a match's chat events.
func (h *Hub) JoinMatch(conn Conn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.matches[matchID]
	if !ok {
		group = make(map[Conn]struct{})
		h.matches[matchID] = group
	}
	group[conn] = struct{}{}
}

// LeaveMatch removes a connection; the last leaver drops the group entry.
func (h *Hub) LeaveMatch(conn Conn, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.matches[matchID]
	if !ok {
		return
	}
	delete(group, conn)
	if len(group) == 0 {
		delete(h.matches, matchID)
	}
}

// JoinObserver registers a global observer connection.
func (h *Hub) JoinObserver(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers[conn] = struct{}{}
}

// LeaveObserver removes an observer connection.
func (h *Hub) LeaveObserver(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observers, conn)
}

// MatchConns returns the number of live connections for a match.
func (h *Hub) MatchConns(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}

// ObserverConns returns the number of live observer connections.
func (h *Hub) ObserverConns() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// snapshotMatch copies the current membership of a match group so sends run
// outside the lock.
func (h *Hub) snapshotMatch(matchID string) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group := h.matches[matchID]
	conns := make([]Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	return conns
}

// snapshotObservers copies the current observer membership.
func (h *Hub) snapshotObservers() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]Conn, 0, len(h.observers))
	for conn := range h.observers {
		conns = append(conns, conn)
	}
	return conns
}

// BroadcastMatch delivers an event to every connection registered for the
// match. Synchronous; callers on a request path use Dispatch variants.
func (h *Hub) BroadcastMatch(matchID string, event Event) {
	for _, conn := range h.snapshotMatch(matchID) {
		if err := conn.SendJSON(event); err != nil {
			// Best-effort: a dead socket stays registered until its
			// owner disconnects and deregisters it.
			h.logger.Debug().Err(err).Str("match_id", matchID).Msg("match broadcast send failed")
		}
	}
}

// BroadcastObservers delivers an event to every observer connection.
func (h *Hub) BroadcastObservers(event Event) {
	for _, conn := range h.snapshotObservers() {
		if err := conn.SendJSON(event); err != nil {
			h.logger.Debug().Err(err).Msg("observer broadcast send failed")
		}
	}
}

// DispatchMatch fires a match broadcast without blocking the caller. The
// triggering request neither waits on nor fails because of delivery.
func (h *Hub) DispatchMatch(matchID string, event Event) {
	go h.BroadcastMatch(matchID, event)
}

// DispatchObservers fires an observer broadcast without blocking the caller.
func (h *Hub) DispatchObservers(event Event) {
	go h.BroadcastObservers(event)
}
