package http

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// queryCache is a thread-safe TTL cache for rendered query results.
// The dashboard reloads data at most once per TTL window; staleness up
// to the TTL is acceptable for an analytics view. The clock is
// injectable so tests can freeze and advance time.
type queryCache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

func newQueryCache(ttl time.Duration, clock clockwork.Clock) *queryCache {
	return &queryCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

func (c *queryCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *queryCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}
