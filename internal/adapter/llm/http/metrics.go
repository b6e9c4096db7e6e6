package http

import (
	"sync"
	"time"
)

// Metrics tracks aggregate statistics across LLM calls.
type Metrics interface {
	// RecordCall records a completed call with its usage.
	RecordCall(provider, model string, tokensIn, tokensOut int, cost float64, duration time.Duration)

	// RecordError records a failed call.
	RecordError(provider, model string)

	// Snapshot returns current statistics.
	Snapshot() Stats
}

// Stats contains aggregate call statistics.
type Stats struct {
	TotalCalls     int
	TotalTokensIn  int
	TotalTokensOut int
	TotalCost      float64
	TotalDuration  time.Duration
	ErrorCount     int
	ByProvider     map[string]ProviderStats
}

// ProviderStats contains per-provider statistics.
type ProviderStats struct {
	Calls     int
	TokensIn  int
	TokensOut int
	Cost      float64
	Duration  time.Duration
	Errors    int
}

// DefaultMetrics provides in-memory metrics tracking, safe for
// concurrent use by parallel agent invocations.
type DefaultMetrics struct {
	mu    sync.RWMutex
	stats Stats
}

// NewDefaultMetrics creates a metrics tracker.
func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{
		stats: Stats{ByProvider: make(map[string]ProviderStats)},
	}
}

// RecordCall records usage for a completed call.
func (m *DefaultMetrics) RecordCall(provider, model string, tokensIn, tokensOut int, cost float64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.TotalCalls++
	m.stats.TotalTokensIn += tokensIn
	m.stats.TotalTokensOut += tokensOut
	m.stats.TotalCost += cost
	m.stats.TotalDuration += duration

	ps := m.stats.ByProvider[provider]
	ps.Calls++
	ps.TokensIn += tokensIn
	ps.TokensOut += tokensOut
	ps.Cost += cost
	ps.Duration += duration
	m.stats.ByProvider[provider] = ps
}

// RecordError increments the error counters.
func (m *DefaultMetrics) RecordError(provider, model string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.ErrorCount++
	ps := m.stats.ByProvider[provider]
	ps.Errors++
	m.stats.ByProvider[provider] = ps
}

// Snapshot returns a copy of the current statistics.
func (m *DefaultMetrics) Snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := m.stats
	snapshot.ByProvider = make(map[string]ProviderStats, len(m.stats.ByProvider))
	for provider, ps := range m.stats.ByProvider {
		snapshot.ByProvider[provider] = ps
	}
	return snapshot
}
