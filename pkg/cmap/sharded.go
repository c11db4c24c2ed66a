package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 32

// Map is a concurrent-safe sharded map keyed by string.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint32
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a new sharded map with the default shard count.
func New[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

// NewWithShards creates a new sharded map with the given shard count.
// shardCount must be a power of 2; anything else falls back to the default.
func NewWithShards[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards:    make([]*shard[V], shardCount),
		shardMask: uint32(shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) getShard(key string) *shard[V] {
	idx := murmur3.Sum32([]byte(key)) & m.shardMask
	return m.shards[idx]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	sh := m.getShard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.items[key]
	return v, ok
}

// Set stores a key-value pair, replacing any existing value.
func (m *Map[V]) Set(key string, value V) {
	sh := m.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.items[key] = value
}

// Pop removes a key and returns its previous value, if any.
func (m *Map[V]) Pop(key string) (V, bool) {
	sh := m.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.items[key]
	if ok {
		delete(sh.items, key)
	}
	return v, ok
}

// Upsert atomically reads, mutates and writes back the value for key while
// holding a single shard lock. fn receives the existing value (or the zero
// value) and whether the key existed, and returns the value to store and
// whether the key should be removed instead of stored.
func (m *Map[V]) Upsert(key string, fn func(existing V, exists bool) (result V, remove bool)) V {
	sh := m.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	existing, exists := sh.items[key]
	result, remove := fn(existing, exists)
	if remove {
		delete(sh.items, key)
		var zero V
		return zero
	}
	sh.items[key] = result
	return result
}

// Count returns the total number of items across all shards.
func (m *Map[V]) Count() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// Clear removes every item from every shard.
func (m *Map[V]) Clear() {
	for _, sh := range m.shards {
		sh.mu.Lock()
		sh.items = make(map[string]V)
		sh.mu.Unlock()
	}
}

// Range iterates over all key-value pairs. The callback returns false to
// stop iteration early. As with the teacher's cmap, locks are acquired
// shard by shard, so the overall view is not a single consistent snapshot.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for k, v := range sh.items {
			if !fn(k, v) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int {
	return len(m.shards)
}
