// Package redis provides a Redis-backed agent result cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Cache stores serialized agent results in Redis. It satisfies the agent
// use case's Cache port.
type Cache struct {
	client *redis.Client
}

// NewCache creates a cache backed by the given Redis instance. The
// connection is lazy; use Ping to verify reachability at startup.
func NewCache(config Config) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}),
	}
}

// NewCacheWithClient wraps an existing client, mainly for tests.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping verifies the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get fetches a memoized agent result. A missing key is (zero, false, nil);
// transport and decode failures are returned for the caller to log and
// treat as a miss.
func (c *Cache) Get(ctx context.Context, key string) (domain.AgentResult, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AgentResult{}, false, nil
	}
	if err != nil {
		return domain.AgentResult{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var result domain.AgentResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.AgentResult{}, false, fmt.Errorf("failed to decode cached result %s: %w", key, err)
	}
	return result, true, nil
}

// Put stores an agent result with the given TTL.
func (c *Cache) Put(ctx context.Context, key string, result domain.AgentResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
