package domain

import "time"

// Terminal statuses for a single agent invocation.
const (
	AgentStatusSucceeded       = "succeeded"
	AgentStatusFailed          = "failed"
	AgentStatusSkippedBudget   = "skipped_budget"
	AgentStatusSkippedCacheHit = "skipped_cache_hit"
)

// AgentResult is the outcome of running one agent against one file.
// It is owned by the invocation that produced it and consumed read-only
// by the consolidator.
type AgentResult struct {
	AgentName      string        `json:"agentName"`
	FilePath       string        `json:"filePath"`
	Findings       []Finding     `json:"findings"`
	ReasoningTrace string        `json:"reasoningTrace,omitempty"`
	TokensUsed     int           `json:"tokensUsed"`
	CostUSD        float64       `json:"costUSD"`
	Duration       time.Duration `json:"duration"`
	Status         string        `json:"status"`
	Error          string        `json:"error,omitempty"`
}

// Terminal reports whether the result carries a terminal status.
func (r AgentResult) Terminal() bool {
	switch r.Status {
	case AgentStatusSucceeded, AgentStatusFailed, AgentStatusSkippedBudget, AgentStatusSkippedCacheHit:
		return true
	}
	return false
}
