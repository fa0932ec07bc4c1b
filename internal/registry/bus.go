// internal/registry/bus.go
package registry

import (
	"sync"

	"go.uber.org/zap"

	"macscan/internal/model"
)

// Bus fans registry change events out to subscribers. Delivery is
// best-effort: a subscriber that stops draining its channel loses events
// instead of stalling the registry.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]chan model.Event
	nextID      int
	closed      bool
	logger      *zap.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subscribers: make(map[int]chan model.Event),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The unsubscribe function is idempotent.
func (b *Bus) Subscribe() (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan model.Event, 128)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(event model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			b.logger.Warn("Slow subscriber, dropping event",
				zap.String("event_type", string(event.Type)),
				zap.String("port_id", event.PortID),
			)
		}
	}
}

// Close closes all subscriber channels; further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub)
	}
}
