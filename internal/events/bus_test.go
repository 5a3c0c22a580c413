package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, ch Subscriber) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return e
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(EventScriptViewed)
	defer unsubscribe()

	bus.Publish(ScriptViewed(7))

	received := receive(t, ch)
	if received.Type != EventScriptViewed {
		t.Errorf("expected type %s, got %s", EventScriptViewed, received.Type)
	}
	if received.Payload["script_id"] != int64(7) {
		t.Errorf("expected script_id 7, got %v", received.Payload["script_id"])
	}
	if received.Timestamp.IsZero() {
		t.Error("timestamp not stamped on publish")
	}
}

func TestOtherTypesNotDelivered(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(EventCatalogReloaded)
	defer unsubscribe()

	bus.Publish(ScriptViewed(1))

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWildcardSubscriber(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(Wildcard)
	defer unsubscribe()

	bus.Publish(ScriptViewed(1))
	bus.Publish(ScriptTransitioned(1, "Set-GlobalAdmin", "draft", "approved", "reviewer"))

	if e := receive(t, ch); e.Type != EventScriptViewed {
		t.Errorf("first event = %s", e.Type)
	}
	if e := receive(t, ch); e.Type != EventScriptTransitioned {
		t.Errorf("second event = %s", e.Type)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(EventScriptViewed)
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n := bus.SubscriberCount(EventScriptViewed); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}

	// Publishing after unsubscribe must not panic
	bus.Publish(ScriptViewed(1))
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus()

	_, unsubscribe := bus.Subscribe(EventScriptViewed)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			bus.Publish(ScriptViewed(int64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, unsubscribe := bus.Subscribe(Wildcard)
			select {
			case <-ch:
			case <-time.After(10 * time.Millisecond):
			}
			unsubscribe()
		}()
		go func(i int) {
			defer wg.Done()
			bus.Publish(ContributorAdded(int64(i), "Dana Whitfield", "editor"))
		}(i)
	}

	wg.Wait()
}

func TestMarshalEvent(t *testing.T) {
	e := CatalogReloaded(40, "abc123")
	e.Timestamp = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	data, err := MarshalEvent(e)
	if err != nil {
		t.Fatalf("MarshalEvent failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["type"] != EventCatalogReloaded {
		t.Errorf("type = %v", decoded["type"])
	}
	payload := decoded["payload"].(map[string]interface{})
	if payload["scripts"] != float64(40) || payload["checksum"] != "abc123" {
		t.Errorf("payload = %v", payload)
	}
	if decoded["timestamp"] != "2025-03-14T09:00:00Z" {
		t.Errorf("timestamp = %v", decoded["timestamp"])
	}
}

func TestSequenceNumbers(t *testing.T) {
	bus := NewBus()

	ch, unsubscribe := bus.Subscribe(Wildcard)
	defer unsubscribe()

	bus.Publish(ScriptViewed(1))
	bus.Publish(CatalogReloaded(40, "abc"))

	first, second := receive(t, ch), receive(t, ch)
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seq = %d, %d; want 1, 2", first.Seq, second.Seq)
	}
}

func TestFullSubscriberCountsDrops(t *testing.T) {
	bus := NewBus()

	_, unsubscribe := bus.Subscribe(EventScriptViewed)
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(ScriptViewed(int64(i)))
	}
	if got := bus.Dropped(); got != 5 {
		t.Errorf("dropped = %d, want 5", got)
	}
}
