package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReport(reviewID string) domain.ReviewReport {
	issue := domain.NewFinding(domain.FindingInput{
		AgentSource: "analyzer", Severity: domain.SeverityHigh, Category: domain.CategoryBug,
		Title: "Division by zero", Description: "denominator unchecked",
		FilePath: "mean.go", LineStart: 8, LineEnd: 8, Confidence: 0.9,
		SuggestedFix: "guard the divisor",
	})
	issue.Sources = []string{"analyzer", "security"}

	return domain.ReviewReport{
		ReviewID:         reviewID,
		ExecutiveSummary: "Found 1 issue (1 high).",
		Issues:           []domain.Finding{issue},
		OverallScore:     90,
		Recommendation:   domain.RecommendationRequestChanges,
		Statistics: domain.Statistics{
			TotalIssues:      1,
			IssuesBySeverity: map[string]int{domain.SeverityHigh: 1},
			IssuesByCategory: map[string]int{domain.CategoryBug: 1},
			FilesReviewed:    1,
			AgentsSucceeded:  4,
			TotalTokens:      1200,
			TotalCostUSD:     0.08,
			Duration:         3 * time.Second,
		},
		Status:      domain.ReviewStatusCompleted,
		CreatedAt:   time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2026, 8, 30, 10, 0, 3, 0, time.UTC),
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("rev-1")
	require.NoError(t, store.Save(ctx, report))

	loaded, err := store.Load(ctx, "rev-1")
	require.NoError(t, err)

	assert.Equal(t, report.ReviewID, loaded.ReviewID)
	assert.Equal(t, report.Status, loaded.Status)
	assert.Equal(t, report.ExecutiveSummary, loaded.ExecutiveSummary)
	assert.Equal(t, report.OverallScore, loaded.OverallScore)
	assert.Equal(t, report.Recommendation, loaded.Recommendation)
	assert.Equal(t, report.Statistics, loaded.Statistics)
	assert.Equal(t, report.CreatedAt, loaded.CreatedAt)

	require.Len(t, loaded.Issues, 1)
	assert.Equal(t, report.Issues[0], loaded.Issues[0])
}

func TestStore_SaveReplacesPriorVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleReport("rev-1")))

	updated := sampleReport("rev-1")
	updated.Issues = nil
	updated.OverallScore = 100
	require.NoError(t, store.Save(ctx, updated))

	loaded, err := store.Load(ctx, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, loaded.OverallScore)
	assert.Empty(t, loaded.Issues)
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(context.Background(), "rev-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_IssueOrderPreserved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("rev-1")
	second := domain.NewFinding(domain.FindingInput{
		AgentSource: "documenter", Severity: domain.SeverityLow, Category: domain.CategoryDocumentation,
		Title: "Missing doc comment", FilePath: "api.go", LineStart: 1, LineEnd: 1, Confidence: 0.6,
	})
	second.Sources = []string{"documenter"}
	report.Issues = append(report.Issues, second)
	require.NoError(t, store.Save(ctx, report))

	loaded, err := store.Load(ctx, "rev-1")
	require.NoError(t, err)
	require.Len(t, loaded.Issues, 2)
	assert.Equal(t, "Division by zero", loaded.Issues[0].Title)
	assert.Equal(t, "Missing doc comment", loaded.Issues[1].Title)
}

func TestStore_ListRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := sampleReport("rev-old")
	older.CreatedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, sampleReport("rev-new")))

	ids, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"rev-new", "rev-old"}, ids)

	ids, err = store.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"rev-new"}, ids)
}

func TestStore_TotalCost(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleReport("rev-1")))
	b := sampleReport("rev-2")
	b.Statistics.TotalCostUSD = 0.12
	require.NoError(t, store.Save(ctx, b))

	total, err := store.TotalCost(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, total, 1e-9)
}
