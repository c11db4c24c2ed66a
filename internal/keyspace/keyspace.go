// Package keyspace holds the in-memory value store: every keyed string,
// list, hash and set the server exposes, plus per-key expiry. It is the
// core the rest of the server is built around (SPEC_FULL.md §4.2).
package keyspace

import (
	"container/list"
	"sync"
	"time"

	"github.com/keydb/keydb/pkg/cmap"
)

// Store is the keyed value table. Per-key mutation runs under the
// sharded map's own lock (github.com/spaolacci/murmur3-selected shard),
// giving single-key atomicity without a global mutex. mu is a coarse
// lock layered on top purely for the operations that need a consistent
// view of the whole table: FlushAll takes it exclusively, ReapExpired
// takes it exclusively during its own sweep so it never races a
// concurrent FlushAll, and everything else takes it for reading so it
// can never run concurrently with either.
type Store struct {
	data *cmap.Map[*entry]
	mu   sync.RWMutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: cmap.New[*entry]()}
}

// Get returns the string value at key. found is false if the key is
// absent or logically expired.
func (s *Store) Get(key string) (value []byte, found bool, err error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return nil, false, nil
	}
	if e.kind != kindString {
		return nil, false, ErrWrongType
	}
	return cloneBytes(e.str), true, nil
}

// Set stores value as a string at key, replacing whatever was there
// (regardless of its prior variant). ttl of zero means no expiry.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	now := time.Now()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.data.Set(key, newStringEntry(value, expiresAt))
}

// Del removes each of keys, ignoring absent ones, and reports how many
// were actually present (and live).
func (s *Store) Del(keys ...string) int {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	removed := 0
	for _, key := range keys {
		var wasLive bool
		s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
			if _, ok := liveEntry(existing, exists, now); ok {
				wasLive = true
			}
			return nil, true
		})
		if wasLive {
			removed++
		}
	}
	return removed
}

// Exists reports how many of keys are present and live. A key repeated
// in the argument list is counted once per occurrence, matching Redis.
func (s *Store) Exists(keys ...string) int {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, key := range keys {
		raw, exists := s.data.Get(key)
		if _, ok := liveEntry(raw, exists, now); ok {
			count++
		}
	}
	return count
}

// Expire sets key's remaining lifetime to seconds from now, returning 1
// if key exists and the deadline was set, 0 if key is absent.
func (s *Store) Expire(key string, seconds int64) int {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var applied bool
	s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
		e, ok := liveEntry(existing, exists, now)
		if !ok {
			return existing, !exists
		}
		e.expiresAt = now.Add(time.Duration(seconds) * time.Second)
		applied = true
		return e, false
	})
	if !applied {
		return 0
	}
	return 1
}

// TTL reports key's remaining lifetime in whole seconds, -1 if key
// exists with no expiry, or -2 if key is absent.
func (s *Store) TTL(key string) int64 {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return -2
	}
	if e.expiresAt.IsZero() {
		return -1
	}
	remaining := e.expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return int64(remaining / time.Second)
}

// LPush prepends values, in argument order, to the list at key, creating
// it if absent, and returns the resulting length.
func (s *Store) LPush(key string, values [][]byte) (int, error) {
	return s.pushList(key, values, true)
}

// RPush appends values, in argument order, to the list at key, creating
// it if absent, and returns the resulting length.
func (s *Store) RPush(key string, values [][]byte) (int, error) {
	return s.pushList(key, values, false)
}

func (s *Store) pushList(key string, values [][]byte, front bool) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var length int
	var outErr error
	s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
		e, ok := liveEntry(existing, exists, now)
		if ok {
			if e.kind != kindList {
				outErr = ErrWrongType
				return existing, false
			}
		} else {
			e = newListEntry()
		}
		for _, v := range values {
			if front {
				e.list.PushFront(cloneBytes(v))
			} else {
				e.list.PushBack(cloneBytes(v))
			}
		}
		length = e.list.Len()
		return e, false
	})
	if outErr != nil {
		return 0, outErr
	}
	return length, nil
}

// LPop removes and returns the first element of the list at key.
// found is false if the key is absent or the list is empty.
func (s *Store) LPop(key string) (value []byte, found bool, err error) {
	return s.popList(key, true)
}

// RPop removes and returns the last element of the list at key.
func (s *Store) RPop(key string) (value []byte, found bool, err error) {
	return s.popList(key, false)
}

func (s *Store) popList(key string, front bool) (value []byte, found bool, err error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var outErr error
	s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
		e, ok := liveEntry(existing, exists, now)
		if !ok {
			return existing, !exists
		}
		if e.kind != kindList {
			outErr = ErrWrongType
			return existing, false
		}
		var elem *list.Element
		if front {
			elem = e.list.Front()
		} else {
			elem = e.list.Back()
		}
		if elem == nil {
			return e, false
		}
		value = cloneBytes(elem.Value.([]byte))
		found = true
		e.list.Remove(elem)
		return e, false // an emptied list stays behind, empty, with its variant intact
	})
	if outErr != nil {
		return nil, false, outErr
	}
	return value, found, nil
}

// LLen returns the length of the list at key, or 0 if absent.
func (s *Store) LLen(key string) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return 0, nil
	}
	if e.kind != kindList {
		return 0, ErrWrongType
	}
	return e.list.Len(), nil
}

// LRange returns the elements of the list at key between start and stop
// inclusive, both of which may be negative (counting from the list's
// end, per spec.md §6). An empty result is returned, not an error, when
// the range is out of bounds or the key is absent.
func (s *Store) LRange(key string, start, stop int) ([][]byte, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return [][]byte{}, nil
	}
	if e.kind != kindList {
		return nil, ErrWrongType
	}

	length := e.list.Len()
	start = normalizeIndex(start, length)
	stop = normalizeIndex(stop, length)
	if start < 0 {
		start = 0
	}
	if stop > length-1 {
		stop = length - 1
	}
	if length == 0 || start > stop {
		return [][]byte{}, nil
	}

	out := make([][]byte, 0, stop-start+1)
	i := 0
	for el := e.list.Front(); el != nil; el = el.Next() {
		if i > stop {
			break
		}
		if i >= start {
			out = append(out, cloneBytes(el.Value.([]byte)))
		}
		i++
	}
	return out, nil
}

func normalizeIndex(idx, length int) int {
	if idx < 0 {
		return length + idx
	}
	return idx
}

// HSet stores field/value pairs in the hash at key, creating it if
// absent, and returns the number of fields newly created (existing
// fields that were merely overwritten do not count, per spec.md §6).
func (s *Store) HSet(key string, pairs [][2][]byte) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var added int
	var outErr error
	s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
		e, ok := liveEntry(existing, exists, now)
		if ok {
			if e.kind != kindHash {
				outErr = ErrWrongType
				return existing, false
			}
		} else {
			e = newHashEntry()
		}
		for _, pair := range pairs {
			field := string(pair[0])
			if _, existed := e.hash[field]; !existed {
				added++
			}
			e.hash[field] = cloneBytes(pair[1])
		}
		return e, false
	})
	if outErr != nil {
		return 0, outErr
	}
	return added, nil
}

// HGet returns the value of field in the hash at key.
func (s *Store) HGet(key, field string) (value []byte, found bool, err error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return nil, false, nil
	}
	if e.kind != kindHash {
		return nil, false, ErrWrongType
	}
	v, ok := e.hash[field]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

// HDel removes fields from the hash at key and returns how many were
// actually present.
func (s *Store) HDel(key string, fields []string) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var removed int
	var outErr error
	s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
		e, ok := liveEntry(existing, exists, now)
		if !ok {
			return existing, !exists
		}
		if e.kind != kindHash {
			outErr = ErrWrongType
			return existing, false
		}
		for _, f := range fields {
			if _, present := e.hash[f]; present {
				delete(e.hash, f)
				removed++
			}
		}
		return e, false // an emptied hash stays behind, empty, with its variant intact
	})
	if outErr != nil {
		return 0, outErr
	}
	return removed, nil
}

// HGetAll returns every field/value pair in the hash at key as a flat
// [field0, value0, field1, value1, ...] slice. Pair ordering is
// implementation-defined (spec.md §6), following Go's randomized map
// iteration.
func (s *Store) HGetAll(key string) ([][]byte, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return [][]byte{}, nil
	}
	if e.kind != kindHash {
		return nil, ErrWrongType
	}
	out := make([][]byte, 0, len(e.hash)*2)
	for field, value := range e.hash {
		out = append(out, []byte(field), cloneBytes(value))
	}
	return out, nil
}

// SAdd adds members to the set at key, creating it if absent, and
// returns the number of members newly added.
func (s *Store) SAdd(key string, members [][]byte) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var added int
	var outErr error
	s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
		e, ok := liveEntry(existing, exists, now)
		if ok {
			if e.kind != kindSet {
				outErr = ErrWrongType
				return existing, false
			}
		} else {
			e = newSetEntry()
		}
		for _, m := range members {
			member := string(m)
			if _, present := e.set[member]; !present {
				e.set[member] = struct{}{}
				added++
			}
		}
		return e, false
	})
	if outErr != nil {
		return 0, outErr
	}
	return added, nil
}

// SRem removes members from the set at key and returns how many were
// actually present.
func (s *Store) SRem(key string, members []string) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var removed int
	var outErr error
	s.data.Upsert(key, func(existing *entry, exists bool) (*entry, bool) {
		e, ok := liveEntry(existing, exists, now)
		if !ok {
			return existing, !exists
		}
		if e.kind != kindSet {
			outErr = ErrWrongType
			return existing, false
		}
		for _, m := range members {
			if _, present := e.set[m]; present {
				delete(e.set, m)
				removed++
			}
		}
		return e, false // an emptied set stays behind, empty, with its variant intact
	})
	if outErr != nil {
		return 0, outErr
	}
	return removed, nil
}

// SMembers returns every member of the set at key, in unspecified order.
func (s *Store) SMembers(key string) ([][]byte, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return [][]byte{}, nil
	}
	if e.kind != kindSet {
		return nil, ErrWrongType
	}
	out := make([][]byte, 0, len(e.set))
	for m := range e.set {
		out = append(out, []byte(m))
	}
	return out, nil
}

// SCard returns the number of members in the set at key, or 0 if absent.
func (s *Store) SCard(key string) (int, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, exists := s.data.Get(key)
	e, ok := liveEntry(raw, exists, now)
	if !ok {
		return 0, nil
	}
	if e.kind != kindSet {
		return 0, ErrWrongType
	}
	return len(e.set), nil
}

// FlushAll discards every key, unconditionally.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Clear()
}

// KeyCount returns the number of keys currently stored, including any
// not yet physically reaped past their expiry. It backs the INFO
// command and the keydb_keys metric.
func (s *Store) KeyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Count()
}

// ReapExpired scans every key and physically deletes those past their
// deadline, returning the number evicted. It runs under the coarse lock
// in exclusive mode so a concurrent FlushAll or read can never observe
// a half-swept table (SPEC_FULL.md §4.2).
func (s *Store) ReapExpired() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiredKeys []string
	s.data.Range(func(key string, value *entry) bool {
		if value.expired(now) {
			expiredKeys = append(expiredKeys, key)
		}
		return true
	})
	for _, key := range expiredKeys {
		s.data.Pop(key)
	}
	return len(expiredKeys)
}
