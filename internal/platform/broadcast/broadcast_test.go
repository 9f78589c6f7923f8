package broadcast

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	s1 := bus.Subscribe()
	s2 := bus.Subscribe()

	wardID := uuid.New()
	bus.Publish(Event{Type: EventInventoryChanged, WardID: wardID})

	for _, s := range []*Subscription{s1, s2} {
		select {
		case evt := <-s.C:
			if evt.Type != EventInventoryChanged {
				t.Errorf("expected %s, got %s", EventInventoryChanged, evt.Type)
			}
			if evt.WardID != wardID {
				t.Errorf("expected ward %s, got %s", wardID, evt.WardID)
			}
			if evt.ID == "" {
				t.Error("expected event id to be assigned")
			}
			if evt.Timestamp.IsZero() {
				t.Error("expected timestamp to be assigned")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	s := bus.Subscribe()

	bus.Unsubscribe(s.ID)

	if _, open := <-s.C; open {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}

	// Unsubscribing twice must not panic.
	bus.Unsubscribe(s.ID)
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	s := bus.Subscribe()

	// Overfill the subscriber's buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: EventInventoryChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	// The subscriber still sees the buffered prefix.
	select {
	case <-s.C:
	default:
		t.Error("expected at least one buffered event")
	}
}
