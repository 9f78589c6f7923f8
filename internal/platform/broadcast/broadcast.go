// Package broadcast provides an in-process publish/subscribe bus used to tell
// open wizard sessions that inventory has changed, so they re-fetch occupancy
// before offering further bed selections.
package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventInventoryChanged is published after a successful finalize or discharge
// updates ward counters.
const EventInventoryChanged = "inventory.changed"

// Event is a single bus message.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	WardID    uuid.UUID       `json:"ward_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Subscription is a handle to a subscriber's event channel. Close it via
// Bus.Unsubscribe when the session ends.
type Subscription struct {
	ID string
	C  <-chan Event

	ch chan Event
}

// Bus fans events out to subscribers. Delivery is best-effort: a subscriber
// whose buffer is full misses the event rather than blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
	// buffer size for new subscriber channels
	buf int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]*Subscription), buf: 16}
}

// Subscribe registers a new subscriber for all event types.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Event, b.buf)
	sub := &Subscription{
		ID: uuid.New().String(),
		C:  ch,
		ch: ch,
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- evt:
		default:
			// subscriber is not draining; drop rather than block
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
