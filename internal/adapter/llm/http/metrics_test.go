package http

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMetrics_RecordCall(t *testing.T) {
	metrics := NewDefaultMetrics()

	metrics.RecordCall("anthropic", "claude-haiku-4-5", 100, 50, 0.01, time.Second)
	metrics.RecordCall("openai", "gpt-4o-mini", 200, 80, 0.02, 2*time.Second)
	metrics.RecordError("openai", "gpt-4o-mini")

	stats := metrics.Snapshot()
	assert.Equal(t, 2, stats.TotalCalls)
	assert.Equal(t, 300, stats.TotalTokensIn)
	assert.Equal(t, 130, stats.TotalTokensOut)
	assert.InDelta(t, 0.03, stats.TotalCost, 1e-9)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.ByProvider["anthropic"].Calls)
	assert.Equal(t, 1, stats.ByProvider["openai"].Errors)
}

func TestDefaultMetrics_ConcurrentAccess(t *testing.T) {
	metrics := NewDefaultMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				metrics.RecordCall("anthropic", "claude-haiku-4-5", 10, 5, 0.001, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	stats := metrics.Snapshot()
	assert.Equal(t, 1000, stats.TotalCalls)
	assert.Equal(t, 10000, stats.TotalTokensIn)
}

func TestDefaultMetrics_SnapshotIsCopy(t *testing.T) {
	metrics := NewDefaultMetrics()
	metrics.RecordCall("anthropic", "m", 1, 1, 0.001, time.Millisecond)

	snapshot := metrics.Snapshot()
	snapshot.ByProvider["anthropic"] = ProviderStats{Calls: 999}

	assert.Equal(t, 1, metrics.Snapshot().ByProvider["anthropic"].Calls)
}
