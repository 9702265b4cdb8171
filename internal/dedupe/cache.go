package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	id string
	ts time.Time
}

type record struct {
	fingerprint string
	ts          time.Time
}

// Cache remembers the last archived fingerprint of each announcement id for a
// bounded window, so the worker can skip snapshots whose content did not change.
type Cache struct {
	mu       sync.Mutex
	items    map[string]record
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]record, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Changed reports whether fingerprint differs from the one remembered for id.
// Unknown and expired ids count as changed. It does not record anything; use
// Remember once the document has been stored.
func (c *Cache) Changed(id, fingerprint string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.items[id]
	if !ok || now.Sub(rec.ts) > c.ttl {
		return true
	}
	return rec.fingerprint != fingerprint
}

// Remember records fingerprint as the current content of id.
func (c *Cache) Remember(id, fingerprint string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[id] = record{fingerprint: fingerprint, ts: now}
	c.order = append(c.order, entry{id: id, ts: now})
	c.compact(now)
}

// Len returns the number of ids currently remembered.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// a later Remember for the same id owns the entry now
		if rec, ok := c.items[oldest.id]; ok && rec.ts.Equal(oldest.ts) {
			delete(c.items, oldest.id)
		}
	}
}
