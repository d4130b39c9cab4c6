// Package notify delivers ledger change events to subscribed viewer
// endpoints. Delivery is best-effort: a dead subscriber is pruned without
// affecting delivery to the others, and publishers never wait for
// acknowledgement.
package notify

import (
	"sync"

	"github.com/inabajunmr/autosequence/internal/capture"
	"github.com/inabajunmr/autosequence/internal/logging"
	"go.uber.org/zap"
)

// Event is one ledger change notification.
type Event struct {
	Action string
	Record capture.RequestRecord
}

// Sink is one subscriber endpoint. Deliver must not block indefinitely; an
// error marks the sink dead and it is removed from the hub.
type Sink interface {
	Deliver(Event) error
}

// Hub fans events out to the current subscriber set.
type Hub struct {
	mu     sync.RWMutex
	sinks  map[string]Sink
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{sinks: make(map[string]Sink), logger: logger}
}

// Subscribe registers a sink under an id. Re-subscribing replaces the sink.
func (h *Hub) Subscribe(id string, s Sink) {
	h.mu.Lock()
	h.sinks[id] = s
	h.mu.Unlock()
}

// Unsubscribe removes a sink. Unknown ids are a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	delete(h.sinks, id)
	h.mu.Unlock()
}

// Count returns the current subscriber count.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}

// Publish delivers the event to every current subscriber. Failed sinks are
// unsubscribed. Implements capture.Notifier.
func (h *Hub) Publish(action string, rec capture.RequestRecord) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.sinks))
	sinks := make([]Sink, 0, len(h.sinks))
	for id, s := range h.sinks {
		ids = append(ids, id)
		sinks = append(sinks, s)
	}
	h.mu.RUnlock()

	ev := Event{Action: action, Record: rec}
	for i, s := range sinks {
		if err := s.Deliver(ev); err != nil {
			h.logger.Warn("removing unreachable viewer",
				logging.Viewer(ids[i]), zap.Error(err))
			h.Unsubscribe(ids[i])
		}
	}
}
