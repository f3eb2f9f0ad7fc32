// Package dedupe suppresses re-processing of messages already handled.
package dedupe

import "sync"

// DefaultCapacity bounds the cache when no explicit size is configured.
const DefaultCapacity = 1000

// Cache tracks recently seen message identifiers in a fixed-capacity FIFO
// queue with a parallel set for O(1) membership checks. Purely in-memory,
// process-lifetime-scoped state; safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	queue    []string
	members  map[string]struct{}
	capacity int
}

// New creates a cache. Non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		members:  make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// IsProcessed reports whether the id was marked processed and is still
// within the retention window.
func (c *Cache) IsProcessed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.members[id]
	return ok
}

// MarkProcessed records the id. Re-marking a present id is a no-op: it does
// not reorder the entry or evict anything. Inserting into a full cache
// evicts the oldest id from both the queue and the set first.
func (c *Cache) MarkProcessed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[id]; ok {
		return
	}
	if len(c.queue) >= c.capacity {
		oldest := c.queue[0]
		c.queue = c.queue[1:]
		delete(c.members, oldest)
	}
	c.queue = append(c.queue, id)
	c.members[id] = struct{}{}
}

// Len returns the number of tracked ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
