package back

import (
	"sync"
	"time"
)

// displayCacheTTL is how stale a leaderboard or stats read is allowed to
// be. Write paths never read through the cache.
const displayCacheTTL = 60 * time.Second

type cacheEntry struct {
	value     interface{}
	fetchedAt time.Time
}

// displayCache is a pull-through cache for read-heavy display queries.
// Every entry carries its fetch time, a get past the TTL triggers a
// refresh. It replaces the ad-hoc global dictionaries the rating sheet
// module used to share.
type displayCache struct {
	mx      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newDisplayCache(ttl time.Duration) *displayCache {
	return &displayCache{
		ttl:     ttl,
		entries: map[string]cacheEntry{},
	}
}

func (c *displayCache) get(key string, refresh func() (interface{}, error)) (interface{}, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if entry, ok := c.entries[key]; ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.value, nil
	}

	value, err := refresh()
	if err != nil {
		return nil, err
	}

	c.entries[key] = cacheEntry{
		value:     value,
		fetchedAt: time.Now(),
	}

	return value, nil
}

func (c *displayCache) invalidate(keys ...string) {
	c.mx.Lock()
	defer c.mx.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}
}
