package json

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

func TestWriter_WritesReport(t *testing.T) {
	dir := t.TempDir()
	report := domain.ReviewReport{
		ReviewID:         "rev-1",
		ExecutiveSummary: "Found 1 issue (1 high).",
		Issues: []domain.Finding{domain.NewFinding(domain.FindingInput{
			AgentSource: "analyzer", Severity: domain.SeverityHigh, Category: domain.CategoryBug,
			Title: "Division by zero", FilePath: "mean.go", LineStart: 8, LineEnd: 8, Confidence: 0.9,
		})},
		OverallScore:   90,
		Recommendation: domain.RecommendationRequestChanges,
		Status:         domain.ReviewStatusCompleted,
		CreatedAt:      time.Now().UTC(),
	}

	path, err := NewWriter().Write(context.Background(), report, dir)
	require.NoError(t, err)
	assert.Contains(t, path, "review-rev-1.json")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded domain.ReviewReport
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "rev-1", decoded.ReviewID)
	require.Len(t, decoded.Issues, 1)
	assert.Equal(t, "Division by zero", decoded.Issues[0].Title)
}

func TestWriter_CreatesOutputDir(t *testing.T) {
	dir := t.TempDir() + "/nested/out"
	_, err := NewWriter().Write(context.Background(), domain.ReviewReport{ReviewID: "rev-2"}, dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	require.NoError(t, err)
}
