package keyspace

import (
	"container/list"
	"time"
)

// kind is the variant tag of a stored value. It never changes for the
// lifetime of an entry (spec.md §3): once created, a key keeps its variant
// until it is deleted (physically, or logically via expiry) and re-created.
type kind int

const (
	kindString kind = iota
	kindList
	kindHash
	kindSet
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindList:
		return "list"
	case kindHash:
		return "hash"
	case kindSet:
		return "set"
	default:
		return "unknown"
	}
}

// entry is the value stored for one key: exactly one of the payload fields
// is meaningful, selected by kind, plus an optional absolute expiry.
type entry struct {
	kind kind

	str  []byte
	list *list.List // container/list of []byte; O(1) push/pop at both ends
	hash map[string][]byte
	set  map[string]struct{}

	expiresAt time.Time // zero value means "no expiry"
}

// expired reports whether e is logically expired as of now. spec.md §3:
// a value is logically absent from the instant its deadline is in the
// past, strictly — expiry at exactly the tick boundary does not expire it.
func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func newStringEntry(value []byte, expiresAt time.Time) *entry {
	return &entry{kind: kindString, str: cloneBytes(value), expiresAt: expiresAt}
}

func newListEntry() *entry {
	return &entry{kind: kindList, list: list.New()}
}

func newHashEntry() *entry {
	return &entry{kind: kindHash, hash: make(map[string][]byte)}
}

func newSetEntry() *entry {
	return &entry{kind: kindSet, set: make(map[string]struct{})}
}

// liveEntry returns e and true if it exists and is not logically expired,
// otherwise (nil, false). Every read and write path funnels through this
// so an expired-but-not-yet-reaped entry is never treated as present.
func liveEntry(e *entry, exists bool, now time.Time) (*entry, bool) {
	if !exists || e.expired(now) {
		return nil, false
	}
	return e, true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
