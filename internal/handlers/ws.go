package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/moltender/moltender/internal/metrics"
	"github.com/moltender/moltender/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Agents connect from arbitrary hosts; origin checks happen upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSession wraps a websocket connection so concurrent broadcasts from the
// hub never interleave writes.
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSession) SendJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// ChatSocket upgrades to a websocket and joins the match's broadcast group.
// Inbound JSON frames (typing indicators and the like) are relayed to the
// group as-is; persistence stays on the REST path.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid match ID format")
		return
	}

	match, err := h.store.GetMatch(r.Context(), matchID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if match == nil {
		h.Error(w, http.StatusNotFound, "match not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := &wsSession{conn: conn}
	h.hub.JoinMatch(session, matchID.String())
	metrics.WSConnections.WithLabelValues("chat").Inc()

	defer func() {
		h.hub.LeaveMatch(session, matchID.String())
		metrics.WSConnections.WithLabelValues("chat").Dec()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame map[string]interface{}
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		frameType, _ := frame["type"].(string)
		if frameType == "" {
			frameType = "message"
		}
		h.hub.BroadcastMatch(matchID.String(), realtime.NewEvent(frameType, frame))
	}
}

// ObserverSocket joins the global observer group. Observers only listen;
// the read loop exists to detect disconnects.
func (h *Handler) ObserverSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := &wsSession{conn: conn}
	h.hub.JoinObserver(session)
	metrics.WSConnections.WithLabelValues("observer").Inc()

	defer func() {
		h.hub.LeaveObserver(session)
		metrics.WSConnections.WithLabelValues("observer").Dec()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
