package pubsub

import (
	"errors"
	"sync"
	"testing"
)

func TestSubscribeUnsubscribeCounts(t *testing.T) {
	r := NewRegistry()
	id := r.NewSubscriberID()

	if n := r.Subscribe(id, "news", func(string, []byte) error { return nil }); n != 1 {
		t.Fatalf("Subscribe() = %d, want 1", n)
	}
	if n := r.Subscribe(id, "sports", func(string, []byte) error { return nil }); n != 2 {
		t.Fatalf("Subscribe() = %d, want 2", n)
	}
	if n := r.Unsubscribe(id, "news"); n != 1 {
		t.Fatalf("Unsubscribe() = %d, want 1", n)
	}
	if n := r.Unsubscribe(id, "news"); n != 1 {
		t.Fatalf("Unsubscribe() of already-removed channel = %d, want 1 (no-op)", n)
	}
}

func TestUnsubscribeAll(t *testing.T) {
	r := NewRegistry()
	id := r.NewSubscriberID()
	r.Subscribe(id, "a", func(string, []byte) error { return nil })
	r.Subscribe(id, "b", func(string, []byte) error { return nil })

	channels := r.UnsubscribeAll(id)
	if len(channels) != 2 {
		t.Fatalf("UnsubscribeAll() = %v, want 2 channels", channels)
	}
	if n := r.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount() after UnsubscribeAll = %d, want 0", n)
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	received := make(map[string]string)

	for _, id := range []string{r.NewSubscriberID(), r.NewSubscriberID()} {
		id := id
		r.Subscribe(id, "chan", func(channel string, payload []byte) error {
			mu.Lock()
			defer mu.Unlock()
			received[id] = string(payload)
			return nil
		})
	}

	n := r.Publish("chan", []byte("hello"))
	if n != 2 {
		t.Fatalf("Publish() = %d, want 2", n)
	}
	if len(received) != 2 {
		t.Fatalf("received = %v, want 2 entries", received)
	}
}

func TestPublishToChannelWithNoSubscribers(t *testing.T) {
	r := NewRegistry()
	if n := r.Publish("empty", []byte("x")); n != 0 {
		t.Fatalf("Publish() = %d, want 0", n)
	}
}

func TestPublishPrunesBrokenSubscriber(t *testing.T) {
	r := NewRegistry()
	broken := r.NewSubscriberID()
	r.Subscribe(broken, "chan", func(string, []byte) error { return errors.New("write failed") })

	if n := r.Publish("chan", []byte("x")); n != 0 {
		t.Fatalf("Publish() = %d, want 0", n)
	}
	if n := r.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount() after prune = %d, want 0", n)
	}
}

func TestNewSubscriberIDUnique(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := r.NewSubscriberID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate subscriber id %q", id)
		}
		seen[id] = struct{}{}
	}
}
