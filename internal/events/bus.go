// Package events is an in-process publish/subscribe bus for catalog
// changes. The HTTP API streams it to browsers as Server-Sent Events.
package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the catalog
const (
	EventCatalogReloaded    = "catalog.reloaded"
	EventScriptViewed       = "script.viewed"
	EventScriptTransitioned = "script.transitioned"
	EventContributorAdded   = "script.contributor_added"

	// Wildcard subscribes to every event type
	Wildcard = "*"
)

// subscriberBuffer is how many undelivered events a subscriber may hold
// before further events are dropped for it.
const subscriberBuffer = 100

// Event is one catalog change.
type Event struct {
	// Seq increases by one with every publish on a bus.
	Seq       uint64         `json:"seq"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Subscriber is a channel that receives events
type Subscriber chan Event

type subscription struct {
	eventType string
	ch        Subscriber
}

// Bus fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[*subscription]struct{})}
}

// Subscribe registers for one event type, or every type with Wildcard.
// The unsubscribe func closes the channel and may be called more than once.
func (b *Bus) Subscribe(eventType string) (Subscriber, func()) {
	sub := &subscription{eventType: eventType, ch: make(Subscriber, subscriberBuffer)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// SubscriberCount returns the number of subscribers registered for exactly
// eventType.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for sub := range b.subs {
		if sub.eventType == eventType {
			n++
		}
	}
	return n
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Publish stamps the event with the next sequence number and, if unset,
// the current time, then delivers it.
func (b *Bus) Publish(event Event) {
	event.Seq = b.seq.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.eventType != event.Type && sub.eventType != Wildcard {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// MarshalEvent converts an event to JSON
func MarshalEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}
