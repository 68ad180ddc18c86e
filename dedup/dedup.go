// Package dedup suppresses duplicate hits found in the overlap region
// shared by two consecutive chunks.
package dedup

import (
	"sync"

	"github.com/caseforge/filecarver/internal/hashing"
)

// Key identifies a carve candidate by its global offset and file type, the
// same pair a hit straddling a chunk boundary produces twice.
type Key struct {
	GlobalOffset int64
	FileTypeID   string
}

// hash64 folds a Key down to the single uint64 the ring actually stores,
// cheaper to keep and compare at scale than retaining FileTypeID strings in
// every ring slot.
func hash64(k Key) uint64 { return hashing.Key64(k.GlobalOffset, k.FileTypeID) }

// Dedup rejects a Key already seen, keyed on (global_offset, file_type_id).
// A hit can only recur within one overlap window of its first occurrence,
// so a bounded ring of recent keys is sufficient; it never needs to retain
// the full history of a run.
//
// Claim is safe for concurrent use by multiple carve workers: only one
// caller observes a given key transition from unseen to seen.
type Dedup struct {
	mu    sync.Mutex
	ring  []uint64
	seen  map[uint64]struct{}
	pos   int
	limit int
}

// New builds a Dedup with a ring of the given capacity. A capacity of 0
// falls back to 1024 entries.
func New(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Dedup{
		ring:  make([]uint64, capacity),
		seen:  make(map[uint64]struct{}, capacity),
		limit: capacity,
	}
}

// Claim returns true the first time it is called for a given key, and false
// on every subsequent call until that key has aged out of the ring.
func (d *Dedup) Claim(k Key) bool {
	h := hash64(k)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[h]; ok {
		return false
	}

	evicted := d.ring[d.pos]
	if evicted != 0 {
		delete(d.seen, evicted)
	}
	d.ring[d.pos] = h
	d.seen[h] = struct{}{}
	d.pos = (d.pos + 1) % d.limit

	return true
}
