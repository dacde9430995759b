// Package tilecache provides a capacity-bounded cache of in-flight or
// resolved asynchronous results keyed by tile address. A cache hit on a
// still-pending future is the request coalescing mechanism: every caller
// that misses after the first observes the same pending result instead of
// triggering duplicate work.
package tilecache

import (
	"container/list"
	"sync"
)

const (
	// DefaultHighWaterMark is the target occupancy when none is configured.
	DefaultHighWaterMark = 128

	// DefaultEvictionFactor is the occupancy multiple that triggers a
	// batch eviction. The threshold is a heuristic; it amortizes eviction
	// cost instead of paying a check on every insert.
	DefaultEvictionFactor = 2
)

type entry[V any] struct {
	key string
	fut *Future[V]
}

// Cache is a bounded cache of futures with hysteresis-based eviction:
// inserts are cheap until occupancy exceeds factor x highWaterMark, then
// the oldest entries are dropped in one batch until occupancy is back at
// the high water mark. Entries have no TTL; they live until evicted by
// capacity pressure or the whole cache is discarded.
type Cache[V any] struct {
	mu        sync.Mutex
	highWater int
	factor    int
	order     *list.List // entry[V] values, oldest first
	index     map[string]*list.Element
}

// New creates a cache with the default eviction factor.
func New[V any](highWaterMark int) *Cache[V] {
	return NewWithFactor[V](highWaterMark, DefaultEvictionFactor)
}

// NewWithFactor creates a cache with an explicit eviction factor.
// Non-positive arguments fall back to the defaults.
func NewWithFactor[V any](highWaterMark, factor int) *Cache[V] {
	if highWaterMark <= 0 {
		highWaterMark = DefaultHighWaterMark
	}
	if factor < 1 {
		factor = DefaultEvictionFactor
	}
	return &Cache[V]{
		highWater: highWaterMark,
		factor:    factor,
		order:     list.New(),
		index:     make(map[string]*list.Element),
	}
}

// Get returns the future stored under key, pending or resolved.
func (c *Cache[V]) Get(key string) (*Future[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return el.Value.(entry[V]).fut, true
}

// Set inserts a future under key, then applies hysteresis eviction.
// Inserting an existing key replaces the value in place.
func (c *Cache[V]) Set(key string, f *Future[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, f)
}

// GetOrCreate returns the future for key, inserting a fresh unresolved one
// on miss. created reports whether this caller owns producing the value.
func (c *Cache[V]) GetOrCreate(key string) (fut *Future[V], created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		return el.Value.(entry[V]).fut, false
	}
	fut = NewFuture[V]()
	c.set(key, fut)
	return fut, true
}

// Len returns the current occupancy.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// HighWaterMark returns the configured target occupancy.
func (c *Cache[V]) HighWaterMark() int { return c.highWater }

func (c *Cache[V]) set(key string, f *Future[V]) {
	if el, ok := c.index[key]; ok {
		el.Value = entry[V]{key: key, fut: f}
		return
	}
	c.index[key] = c.order.PushBack(entry[V]{key: key, fut: f})
	if c.order.Len() <= c.factor*c.highWater {
		return
	}
	for c.order.Len() > c.highWater {
		front := c.order.Front()
		delete(c.index, front.Value.(entry[V]).key)
		c.order.Remove(front)
	}
}
