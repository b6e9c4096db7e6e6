// Package memory provides an in-process agent result cache for
// single-invocation runs and tests, where no Redis is available.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

type entry struct {
	result    domain.AgentResult
	expiresAt time.Time
}

// Cache is a TTL map guarded by a mutex. Expired entries are dropped
// lazily on read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached result for key, honoring expiry.
func (c *Cache) Get(ctx context.Context, key string) (domain.AgentResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.AgentResult{}, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return domain.AgentResult{}, false, nil
	}
	return e.result, true, nil
}

// Put stores a result. A non-positive TTL stores it without expiry.
func (c *Cache) Put(ctx context.Context, key string, result domain.AgentResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{result: result}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Len returns the number of live entries, counting any not yet expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
