// Package dedupe tracks submitted match IDs so each match is rated at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50_000

// Deduper records seen match IDs to ensure at-most-once rating.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID so the match can be submitted again. Used when
	// a recorded match could not be queued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps IDs in a map. In bounded mode the map points into a
// list ordered by recording time so the oldest ID is evicted in O(1).
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element // element is nil in unbounded mode
	order   *list.List               // front is the newest ID
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[id] = nil
		d.size.Add(1)
		return false
	}

	if len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = d.order.PushFront(id)
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen set, allowing it to be retried.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.seen[id]
	if !exists {
		return
	}
	delete(d.seen, id)
	if e != nil {
		d.order.Remove(e)
	}
	d.size.Add(-1)
}

// evictOldest drops the least recently recorded ID.
// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	e := d.order.Back()
	if e == nil {
		return
	}
	d.order.Remove(e)
	delete(d.seen, e.Value.(string))
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
