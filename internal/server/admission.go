package server

import "sync/atomic"

// admission bounds the number of live connections with a lock-free
// counter: slots are claimed with a compare-and-swap loop on an atomic
// integer, and no mutex is taken.
type admission struct {
	current atomic.Int64
	max     int64
}

func newAdmission(max int) *admission {
	return &admission{max: int64(max)}
}

// reserve attempts to claim one connection slot, returning false if the
// ceiling has been reached.
func (a *admission) reserve() bool {
	for {
		cur := a.current.Load()
		if cur >= a.max {
			return false
		}
		if a.current.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// release frees one previously reserved connection slot.
func (a *admission) release() {
	a.current.Add(-1)
}

// count returns the current number of reserved slots.
func (a *admission) count() int {
	return int(a.current.Load())
}
