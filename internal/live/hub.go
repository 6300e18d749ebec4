// Package live pushes notifications to connected clients. Every connection
// belongs to the room of its authenticated user; a push reaches all of that
// user's open sessions on this instance.
package live

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/unispace/internal/metrics"
	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/utils"
)

// EventNewNotification is the event name clients listen for.
const EventNewNotification = "newNotification"

const sessionBuffer = 16

// Event is the frame written to a client.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Session is one open client connection.
type Session struct {
	ID     string
	UserID uint64
	send   chan []byte
}

func NewSession(userID uint64) *Session {
	return &Session{ID: uuid.NewString(), UserID: userID, send: make(chan []byte, sessionBuffer)}
}

// Outbox yields frames queued for the session.
func (s *Session) Outbox() <-chan []byte { return s.send }

// Room names the user's room, as shown to clients.
func Room(userID uint64) string { return "user:" + strconv.FormatUint(userID, 10) }

// Pusher delivers a notification to a user's live sessions.
type Pusher interface {
	Push(ctx context.Context, userID uint64, n model.Notification)
}

// Hub tracks sessions by user. It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uint64]map[string]*Session
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	if m == nil {
		m = metrics.NewDiscard()
	}
	return &Hub{rooms: make(map[uint64]map[string]*Session), metrics: m}
}

// Join registers s in its user's room and returns the matching leave func.
// Calling leave more than once is harmless.
func (h *Hub) Join(userID uint64, s *Session) func() {
	h.mu.Lock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[string]*Session)
		h.rooms[userID] = room
	}
	room[s.ID] = s
	h.mu.Unlock()
	h.metrics.LiveSessions.Inc()

	var once sync.Once
	return func() { once.Do(func() { h.Leave(userID, s) }) }
}

func (h *Hub) Leave(userID uint64, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[userID]
	if !ok {
		return
	}
	if _, ok := room[s.ID]; !ok {
		return
	}
	delete(room, s.ID)
	if len(room) == 0 {
		delete(h.rooms, userID)
	}
	h.metrics.LiveSessions.Dec()
}

// Sessions counts the open sessions of a user.
func (h *Hub) Sessions(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Deliver queues payload on every session of the user without blocking.
// Sessions whose buffer is full miss the frame. It returns how many
// sessions accepted it.
func (h *Hub) Deliver(userID uint64, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, s := range h.rooms[userID] {
		select {
		case s.send <- payload:
			delivered++
			h.metrics.LivePushes.WithLabelValues("delivered").Inc()
		default:
			h.metrics.LivePushes.WithLabelValues("dropped").Inc()
		}
	}
	return delivered
}

// Push delivers n to the user's sessions on this instance.
func (h *Hub) Push(_ context.Context, userID uint64, n model.Notification) {
	payload, err := EncodeNotification(n)
	if err != nil {
		utils.Logger.WithError(err).WithField("user_id", userID).Error("encode live notification")
		return
	}
	h.Deliver(userID, payload)
}

func EncodeNotification(n model.Notification) ([]byte, error) {
	return json.Marshal(Event{Event: EventNewNotification, Data: n})
}
