// Package realtime fans events out to live client sessions.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

var _ model.Broadcaster = (*Hub)(nil)

// ErrHubClosed is returned when registering with a hub that has been closed.
var ErrHubClosed = errors.New("hub is closed")

// Event is the envelope written to every session.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Session is a live connection that accepts encoded envelopes.
// Send must not block; it returns false once the session can take no more.
type Session interface {
	ID() string
	Send(frame []byte) bool
}

// Hub is the process-wide session registry. Every broadcast goes to every
// registered session; nothing is buffered for sessions that join later.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]Session
	closed   bool
	logger   *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]Session),
		logger:   logger,
	}
}

// Register adds s to the registry, replacing a session with the same ID.
func (h *Hub) Register(s Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	h.sessions[s.ID()] = s
	return nil
}

// Deregister removes the session with the given ID. Unknown IDs are ignored.
func (h *Hub) Deregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, id)
}

// Broadcast encodes payload once and offers it to every session. Sessions
// that refuse the frame are dropped from the registry.
func (h *Hub) Broadcast(event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	sessions := make([]Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	var dropped []string
	for _, s := range sessions {
		if !s.Send(frame) {
			dropped = append(dropped, s.ID())
		}
	}

	for _, id := range dropped {
		h.Deregister(id)
		h.logger.Warn("Realtime hub: dropped lagging session",
			"session_id", id,
			"event", event)
	}

	h.logger.Debug("Realtime hub: event broadcast",
		"event", event,
		"sessions", len(sessions)-len(dropped))

	return nil
}

// Subscribe registers a channel-backed session holding up to buffer frames.
func (h *Hub) Subscribe(buffer int) (*Subscription, error) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &Subscription{
		id:     uuid.NewString(),
		frames: make(chan []byte, buffer),
	}
	if err := h.Register(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe deregisters sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.Deregister(sub.id)
	sub.close()
}

// Len returns the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// Close drops every session and rejects new ones. Subscriptions are closed so
// their readers return.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]Session)
	h.closed = true
	h.mu.Unlock()

	for _, s := range sessions {
		if sub, ok := s.(*Subscription); ok {
			sub.close()
		}
	}
}

// Encode builds the wire envelope for one event.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Event{Name: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", event, err)
	}
	return frame, nil
}

// Subscription is a bounded, channel-backed Session. When the buffer is full
// the subscription is marked lagging and closed instead of blocking the hub.
type Subscription struct {
	id      string
	frames  chan []byte
	mu      sync.Mutex
	closed  bool
	lagging atomic.Bool
}

func (s *Subscription) ID() string {
	return s.id
}

// Frames is closed when the subscription ends.
func (s *Subscription) Frames() <-chan []byte {
	return s.frames
}

// Lagging reports whether the subscription was closed for falling behind.
func (s *Subscription) Lagging() bool {
	return s.lagging.Load()
}

func (s *Subscription) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.frames <- frame:
		return true
	default:
		s.lagging.Store(true)
		s.closed = true
		close(s.frames)
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}
