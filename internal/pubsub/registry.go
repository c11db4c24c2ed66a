// Package pubsub implements the channel-based publish/subscribe registry
// backing SUBSCRIBE, UNSUBSCRIBE and PUBLISH (SPEC_FULL.md §2).
package pubsub

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Deliver sends one published message to a subscriber. Implementations
// must not block indefinitely; a connection's Deliver typically writes
// to its socket under its own write lock.
type Deliver func(channel string, payload []byte) error

type subscriber struct {
	id      string
	deliver Deliver
}

// Registry tracks channel subscriptions and fans out published messages.
// Delivery is best-effort: a subscriber whose Deliver returns an error is
// pruned from the registry rather than allowed to stall a publish.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[string]*subscriber // channel -> subscriber id -> subscriber
	byID     map[string]map[string]struct{}    // subscriber id -> set of channels
	entropy  *ulid.MonotonicEntropy
	entropyM sync.Mutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[string]*subscriber),
		byID:     make(map[string]map[string]struct{}),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// NewSubscriberID returns an opaque, monotonically increasing identifier
// for a connection, independent of its file descriptor (SPEC_FULL.md §2:
// identity must survive descriptor reuse across reconnects).
func (r *Registry) NewSubscriberID() string {
	r.entropyM.Lock()
	defer r.entropyM.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), r.entropy)
	if err != nil {
		// entropy exhaustion within a single millisecond is the only
		// failure mode here; fall back to a fresh non-monotonic read.
		id, _ = ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	}
	return strings.ToLower(id.String())
}

// Subscribe registers deliver to receive messages published to channel
// under subscriber id, and returns the total number of distinct channels
// that id is now subscribed to.
func (r *Registry) Subscribe(id, channel string, deliver Deliver) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.channels[channel]
	if !ok {
		subs = make(map[string]*subscriber)
		r.channels[channel] = subs
	}
	subs[id] = &subscriber{id: id, deliver: deliver}

	chans, ok := r.byID[id]
	if !ok {
		chans = make(map[string]struct{})
		r.byID[id] = chans
	}
	chans[channel] = struct{}{}

	return len(chans)
}

// Unsubscribe removes id's subscription to channel, if any, and returns
// the number of channels id remains subscribed to afterward.
func (r *Registry) Unsubscribe(id, channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id, channel)
	return len(r.byID[id])
}

// UnsubscribeAll removes every subscription held by id, returning the
// channels it had been subscribed to (in unspecified order). Called when
// a connection closes.
func (r *Registry) UnsubscribeAll(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	chans, ok := r.byID[id]
	if !ok {
		return nil
	}
	channels := make([]string, 0, len(chans))
	for ch := range chans {
		channels = append(channels, ch)
	}
	for _, ch := range channels {
		r.removeLocked(id, ch)
	}
	return channels
}

// removeLocked assumes r.mu is already held for writing.
func (r *Registry) removeLocked(id, channel string) {
	if subs, ok := r.channels[channel]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.channels, channel)
		}
	}
	if chans, ok := r.byID[id]; ok {
		delete(chans, channel)
		if len(chans) == 0 {
			delete(r.byID, id)
		}
	}
}

// Publish delivers payload to every current subscriber of channel and
// returns how many subscribers it was delivered to. Subscribers whose
// Deliver call fails are pruned rather than retried.
func (r *Registry) Publish(channel string, payload []byte) int {
	r.mu.RLock()
	subs := r.channels[channel]
	receivers := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		receivers = append(receivers, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	var broken []string
	for _, sub := range receivers {
		if err := sub.deliver(channel, payload); err != nil {
			broken = append(broken, sub.id)
			continue
		}
		delivered++
	}

	for _, id := range broken {
		r.Unsubscribe(id, channel)
	}
	return delivered
}

// SubscriberCount returns how many distinct subscriber ids currently hold
// at least one channel subscription.
func (r *Registry) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
