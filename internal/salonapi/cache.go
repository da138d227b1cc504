package salonapi

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const (
	defaultCacheEntries = 256
	// staleFor bounds how long a cached body may stand in for a failed
	// request.
	staleFor = 10 * time.Minute
)

// cacheEntry holds HTTP validators and the body of one GET response.
type cacheEntry struct {
	ETag         string
	LastModified string
	Body         []byte
	UpdatedAt    time.Time
}

// responseCache is an in-memory conditional-GET cache keyed by URL and
// bearer token, so one user's responses are never served to another.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	max     int
}

func newResponseCache(max int) *responseCache {
	if max <= 0 {
		max = defaultCacheEntries
	}
	return &responseCache{entries: make(map[string]cacheEntry), max: max}
}

func cacheKey(url, token string) string {
	sum := sha256.Sum256([]byte(url + "\x00" + token))
	return hex.EncodeToString(sum[:12])
}

func (c *responseCache) get(key string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// stale returns the cached entry if it is recent enough to serve when the
// API is failing.
func (c *responseCache) stale(key string, now time.Time) (cacheEntry, bool) {
	e, ok := c.get(key)
	if !ok || len(e.Body) == 0 || now.Sub(e.UpdatedAt) > staleFor {
		return cacheEntry{}, false
	}
	return e, true
}

func (c *responseCache) put(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[key] = e
}

// touch refreshes UpdatedAt after a 304.
func (c *responseCache) touch(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.UpdatedAt = now
		c.entries[key] = e
	}
}

func (c *responseCache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if oldestKey == "" || e.UpdatedAt.Before(oldest) {
			oldestKey, oldest = k, e.UpdatedAt
		}
	}
	delete(c.entries, oldestKey)
}

func (c *responseCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
