package markdown

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

func sampleReport() domain.ReviewReport {
	issue := domain.NewFinding(domain.FindingInput{
		AgentSource: "analyzer", Severity: domain.SeverityHigh, Category: domain.CategoryBug,
		Title: "Division by zero", Description: "denominator unchecked",
		FilePath: "mean.go", LineStart: 8, LineEnd: 9, Confidence: 0.9,
		SuggestedFix: "guard with len(values) == 0",
	})
	return domain.ReviewReport{
		ReviewID:         "rev-1",
		ExecutiveSummary: "Found 1 issue (1 high).",
		Issues:           []domain.Finding{issue},
		OverallScore:     90,
		Recommendation:   domain.RecommendationRequestChanges,
		Statistics:       domain.Statistics{FilesReviewed: 2, TotalCostUSD: 0.08, TotalTokens: 1200},
		Status:           domain.ReviewStatusCompleted,
	}
}

func TestRender(t *testing.T) {
	content := Render(sampleReport())

	assert.Contains(t, content, "# Code Review Report")
	assert.Contains(t, content, "- Review: rev-1")
	assert.Contains(t, content, "- Score: 90/100")
	assert.Contains(t, content, "- Recommendation: Request Changes")
	assert.Contains(t, content, "- Cost: $0.0800 (1200 tokens)")
	assert.Contains(t, content, "### Division by zero (High)")
	assert.Contains(t, content, "- File: mean.go:8-9")
	assert.Contains(t, content, "- Confidence: 90%")
	assert.Contains(t, content, "denominator unchecked")
	assert.Contains(t, content, "guard with len(values) == 0")
}

func TestRender_NoIssues(t *testing.T) {
	report := sampleReport()
	report.Issues = nil
	content := Render(report)
	assert.Contains(t, content, "No issues reported.")
	assert.NotContains(t, content, "## Issues")
}

func TestWriter_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter().Write(context.Background(), sampleReport(), dir)
	require.NoError(t, err)
	assert.Contains(t, path, "review-rev-1.md")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Code Review Report")
}
