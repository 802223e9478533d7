package upstream

import (
	"sync"
	"time"

	"pokedex/internal/domain"
)

const maxCacheEntries = 1024

type cacheEntry struct {
	rec     *domain.Pokemon
	expires time.Time
}

// responseCache keeps successful lookups, including "no such Pokémon"
// answers, for a fixed TTL. Failures are never stored.
type responseCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

func (c *responseCache) get(name string) (*domain.Pokemon, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, name)
		return nil, false
	}
	return e.rec, true
}

func (c *responseCache) put(name string, rec *domain.Pokemon) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if len(c.entries) >= maxCacheEntries {
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= maxCacheEntries {
			clear(c.entries)
		}
	}
	c.entries[name] = cacheEntry{rec: rec, expires: now.Add(c.ttl)}
}

func (c *responseCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
