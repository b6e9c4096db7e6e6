package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

func TestCache_RoundTrip(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	result := domain.AgentResult{AgentName: "analyzer", Status: domain.AgentStatusSucceeded}
	require.NoError(t, cache.Put(ctx, "k", result, time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "analyzer", got.AgentName)
}

func TestCache_Miss(t *testing.T) {
	_, ok, err := NewCache().Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	cache := NewCache()
	current := time.Now()
	cache.now = func() time.Time { return current }

	require.NoError(t, cache.Put(context.Background(), "k", domain.AgentResult{}, time.Minute))

	_, ok, _ := cache.Get(context.Background(), "k")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok, _ = cache.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Zero(t, cache.Len(), "expired entry is evicted on read")
}

func TestCache_NoTTLNeverExpires(t *testing.T) {
	cache := NewCache()
	current := time.Now()
	cache.now = func() time.Time { return current }

	require.NoError(t, cache.Put(context.Background(), "k", domain.AgentResult{}, 0))
	current = current.Add(1000 * time.Hour)

	_, ok, _ := cache.Get(context.Background(), "k")
	assert.True(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%5))
			_ = cache.Put(ctx, key, domain.AgentResult{TokensUsed: n}, time.Minute)
			_, _, _ = cache.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, cache.Len())
}
