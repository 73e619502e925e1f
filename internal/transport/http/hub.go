package http

import (
	"sync"

	"go.uber.org/zap"
)

// Notice is a broadcast message fanned out to every subscriber of an event.
type Notice struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans event notices out to websocket subscribers. Sends never block: a
// subscriber whose buffer is full misses the notice and catches up from the
// next read, so one stalled connection cannot hold back the rest of the room.
type Hub struct {
	log *zap.Logger

	mu   sync.Mutex
	subs map[string]map[chan Notice]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{log: log, subs: make(map[string]map[chan Notice]struct{})}
}

// Subscribe registers a listener for one event. The returned cancel removes
// the subscription and closes the channel.
func (h *Hub) Subscribe(eventID string) (<-chan Notice, func()) {
	ch := make(chan Notice, 16)

	h.mu.Lock()
	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[chan Notice]struct{})
	}
	h.subs[eventID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[eventID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, eventID)
				}
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a notice to every current subscriber of the event.
func (h *Hub) Publish(eventID string, notice Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[eventID] {
		select {
		case ch <- notice:
		default:
			h.log.Debug("dropping notice for slow subscriber",
				zap.String("event_id", eventID), zap.String("type", notice.Type))
		}
	}
}
