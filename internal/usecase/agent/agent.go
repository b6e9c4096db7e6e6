// Package agent executes one specialized reviewer agent end-to-end:
// cache lookup, retrieval-augmented prompt construction, the gateway
// call, structured-output parsing, optional self-reflection, and
// confidence filtering.
package agent

import (
	"context"
	"time"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// Specialized reviewer agents. Each is bound to one code-quality aspect.
const (
	NameAnalyzer   = "analyzer"
	NameSecurity   = "security"
	NameOptimizer  = "optimizer"
	NameDocumenter = "documenter"
)

// AllNames lists every known agent in stable order.
func AllNames() []string {
	return []string{NameAnalyzer, NameSecurity, NameOptimizer, NameDocumenter}
}

// Known reports whether the given agent name is recognized.
func Known(name string) bool {
	switch name {
	case NameAnalyzer, NameSecurity, NameOptimizer, NameDocumenter:
		return true
	}
	return false
}

// DefaultCategory returns the finding category an agent falls back to
// when the model omits or mangles the category field.
func DefaultCategory(name string) string {
	switch name {
	case NameSecurity:
		return domain.CategorySecurity
	case NameOptimizer:
		return domain.CategoryPerformance
	case NameDocumenter:
		return domain.CategoryDocumentation
	default:
		return domain.CategoryBug
	}
}

// KnowledgeAspect maps an agent to the knowledge-base aspect it retrieves
// context from.
func KnowledgeAspect(name string) string {
	switch name {
	case NameSecurity:
		return "security_patterns"
	case NameOptimizer:
		return "performance_tips"
	case NameDocumenter:
		return "best_practices"
	default:
		return "bug_patterns"
	}
}

// Gateway is the outbound port for metered LLM completions.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// CompletionRequest mirrors the gateway's inbound payload.
type CompletionRequest struct {
	Prompt    string
	System    string
	Seed      uint64
	MaxTokens int
}

// Completion is the terminal result of one gateway call.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
	CostUSD   float64
	Model     string
}

// Tokens returns the combined token usage of the call.
func (c Completion) Tokens() int {
	return c.TokensIn + c.TokensOut
}

// Cache is the outbound port for memoized agent results. Implementations
// must be best-effort: errors are logged by the runner and treated as a
// miss, never propagated.
type Cache interface {
	Get(ctx context.Context, key string) (domain.AgentResult, bool, error)
	Put(ctx context.Context, key string, result domain.AgentResult, ttl time.Duration) error
}

// Ledger is the per-review budget gate. *budget.Ledger satisfies it.
type Ledger interface {
	Reserve(estimatedTokens int) bool
	Record(tokens int, costUSD float64)
}

// Redactor strips secrets from prompt text before it leaves the process.
type Redactor interface {
	Redact(input string) (string, error)
}

// Logger is the structured logging port.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// TokenEstimator predicts the token count of a prompt for reservation.
type TokenEstimator func(text string) int
