// Package observability bridges the LLM transport logging infrastructure
// to the use case logging ports, so the whole pipeline shares one
// structured logger.
package observability

import (
	"context"

	llmhttp "github.com/bkyoung/agent-reviewer/internal/adapter/llm/http"
)

// PipelineLogger adapts llmhttp.Logger to the review and agent use case
// Logger ports, which share the same method set.
type PipelineLogger struct {
	logger llmhttp.Logger
}

// NewPipelineLogger creates the adapter.
func NewPipelineLogger(logger llmhttp.Logger) *PipelineLogger {
	return &PipelineLogger{logger: logger}
}

// LogWarning delegates to the underlying structured logger.
func (l *PipelineLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.logger.LogWarning(ctx, message, fields)
}

// LogInfo delegates to the underlying structured logger.
func (l *PipelineLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.logger.LogInfo(ctx, message, fields)
}
