package session

import "sync"

type cacheKey struct {
	fingerprint string
	op          string
	args        string
}

// Cache memoizes computation results by dataset fingerprint, operation and
// normalized arguments.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]any
	hits    int64
	misses  int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: map[cacheKey]any{}}
}

// Get looks up a result and counts the hit or miss.
func (c *Cache) Get(fingerprint, op, args string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[cacheKey{fingerprint, op, args}]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores a result.
func (c *Cache) Put(fingerprint, op, args string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{fingerprint, op, args}] = v
}

// Invalidate drops every entry computed from fingerprint and returns how many
// were removed.
func (c *Cache) Invalidate(fingerprint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.fingerprint == fingerprint {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Reset empties the cache. Counters are kept.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[cacheKey]any{}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
