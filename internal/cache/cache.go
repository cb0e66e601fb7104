// Package cache provides a small in-process TTL cache keyed per owner.
// It memoizes per-user derived reads (the statistics snapshot) and is
// explicitly invalidated by every write path that can change the cached
// value. Keys are (operation, ownerID) pairs, so one owner's writes never
// evict another owner's entries.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a mutex-guarded TTL map. Safe for concurrent use.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry
}

// New returns a Cache whose entries live for ttl. A non-positive ttl
// disables caching entirely (Get always misses).
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

func key(op, ownerID string) string { return op + ":" + ownerID }

// Get returns the cached value for (op, ownerID) if present and fresh.
func (c *Cache) Get(op, ownerID string, now time.Time) (any, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(op, ownerID)]
	if !ok {
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(c.entries, key(op, ownerID))
		return nil, false
	}
	return e.value, true
}

// Set stores value under (op, ownerID) until now+ttl.
func (c *Cache) Set(op, ownerID string, value any, now time.Time) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(op, ownerID)] = entry{value: value, expiresAt: now.Add(c.ttl)}
}

// InvalidateOwner drops every cached entry belonging to ownerID, across all
// operations. Called by any write that affects that owner's data.
func (c *Cache) InvalidateOwner(ownerID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	suffix := ":" + ownerID
	for k := range c.entries {
		if len(k) >= len(suffix) && k[len(k)-len(suffix):] == suffix {
			delete(c.entries, k)
		}
	}
}
