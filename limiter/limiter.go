// Package limiter enforces the per-run max-files cap via an atomic
// reserve/commit protocol so concurrent carve workers never overshoot it.
package limiter

import "sync/atomic"

// Limiter gates carve attempts against an optional cap. With no limit set,
// every reservation succeeds. With a limit set, try_reserve/commit/release
// guarantee that committed carves never exceed the cap even under W
// parallel carve workers racing to reserve the last slot.
type Limiter struct {
	limit    int64 // 0 means unlimited
	hasLimit bool
	reserved atomic.Int64
	carved   atomic.Int64
}

// New builds a Limiter. A limit of 0 means unlimited.
func New(limit int64) *Limiter {
	return &Limiter{limit: limit, hasLimit: limit > 0}
}

// TryReserve attempts to claim one slot against the cap. It returns false
// if carved+reserved already meets or exceeds the limit.
func (l *Limiter) TryReserve() bool {
	if !l.hasLimit {
		return true
	}
	for {
		reserved := l.reserved.Load()
		carved := l.carved.Load()
		if carved+reserved >= l.limit {
			return false
		}
		if l.reserved.CompareAndSwap(reserved, reserved+1) {
			return true
		}
	}
}

// Commit converts a successful reservation into a committed carve.
func (l *Limiter) Commit() {
	l.carved.Add(1)
	if l.hasLimit {
		l.reserved.Add(-1)
	}
}

// Release returns a reservation that did not result in a carve (false
// positive, below min_size, or handler failure).
func (l *Limiter) Release() {
	if l.hasLimit {
		l.reserved.Add(-1)
	}
}

// ShouldStop reports whether the cap has already been reached.
func (l *Limiter) ShouldStop() bool {
	return l.hasLimit && l.carved.Load() >= l.limit
}

// Carved returns the number of committed carves so far.
func (l *Limiter) Carved() int64 { return l.carved.Load() }
