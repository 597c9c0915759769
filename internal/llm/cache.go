package llm

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	expiry time.Time
	value  string
}

// replyCache keeps model replies by normalized key until they expire.
type replyCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

func newReplyCache(ttl time.Duration) *replyCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &replyCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		ttl:     ttl,
	}
}

// cacheKey normalizes text so equivalent descriptions share an entry.
func cacheKey(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.Join(strings.Fields(strings.ToLower(p)), " ")
	}
	return strings.Join(normalized, "\x00")
}

func (c *replyCache) get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiry) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return entry.value, true
}

func (c *replyCache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiry: c.now().Add(c.ttl)}
}

func (c *replyCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
