package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// newIntegrationCache connects to the Redis named by AR_REDIS_ADDR, or
// skips the test when none is available.
func newIntegrationCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("AR_REDIS_ADDR")
	if addr == "" {
		t.Skip("AR_REDIS_ADDR not set; skipping Redis integration test")
	}
	cache := NewCache(Config{Addr: addr})
	require.NoError(t, cache.Ping(context.Background()))
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCache_RoundTrip(t *testing.T) {
	cache := newIntegrationCache(t)
	ctx := context.Background()

	result := domain.AgentResult{
		AgentName: "analyzer",
		FilePath:  "mean.go",
		Findings: []domain.Finding{domain.NewFinding(domain.FindingInput{
			AgentSource: "analyzer", Severity: domain.SeverityHigh, Category: domain.CategoryBug,
			Title: "Division by zero", FilePath: "mean.go", LineStart: 8, LineEnd: 8, Confidence: 0.9,
		})},
		TokensUsed: 150,
		CostUSD:    0.01,
		Status:     domain.AgentStatusSucceeded,
	}

	key := "ar:test:roundtrip"
	require.NoError(t, cache.Put(ctx, key, result, time.Minute))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.AgentName, got.AgentName)
	assert.Equal(t, result.TokensUsed, got.TokensUsed)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, result.Findings[0].ID, got.Findings[0].ID)
}

func TestCache_MissingKey(t *testing.T) {
	cache := newIntegrationCache(t)

	_, ok, err := cache.Get(context.Background(), "ar:test:never-written")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_TTLExpires(t *testing.T) {
	cache := newIntegrationCache(t)
	ctx := context.Background()

	key := "ar:test:ttl"
	require.NoError(t, cache.Put(ctx, key, domain.AgentResult{Status: domain.AgentStatusSucceeded}, 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
