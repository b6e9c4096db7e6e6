// Package review orchestrates a full multi-agent code review: static
// analysis, knowledge retrieval, budget-bounded agent fan-out,
// consolidation, and persistence, with streaming progress events.
package review

import (
	"context"

	"github.com/bkyoung/agent-reviewer/internal/domain"
	"github.com/bkyoung/agent-reviewer/internal/usecase/agent"
)

// Logger provides structured logging for the review use case.
type Logger interface {
	// LogWarning logs a warning message with structured fields.
	LogWarning(ctx context.Context, message string, fields map[string]interface{})

	// LogInfo logs an informational message with structured fields.
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
}

// Analyzer runs deterministic static analysis over one file. Failures
// degrade to zero findings; they never fail the review.
type Analyzer interface {
	Analyze(ctx context.Context, file domain.CodeFile) ([]domain.Finding, error)
}

// KnowledgeBase retrieves guidance documents for a (language, aspect)
// pair. Unavailability degrades to empty context.
type KnowledgeBase interface {
	Retrieve(ctx context.Context, language, aspect string, k int) ([]string, error)
}

// Runner executes one specialized agent against one file. *agent.Runner
// satisfies it.
type Runner interface {
	Run(ctx context.Context, req agent.RunRequest) domain.AgentResult
}

// Store persists completed review reports. Save is fire-and-forget from
// the orchestrator's perspective: failures are logged, never surfaced.
type Store interface {
	Save(ctx context.Context, report domain.ReviewReport) error
}

// CommentPoster publishes consolidated issues to an external code host.
type CommentPoster interface {
	Post(ctx context.Context, report domain.ReviewReport) error
}
