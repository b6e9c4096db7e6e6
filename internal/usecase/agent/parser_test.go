package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

func TestParseResponse_FencedJSON(t *testing.T) {
	text := "Let me walk through the function.\n\n```json\n" +
		`{
  "reasoning": "The divisor is never checked before use.",
  "findings": [
    {
      "severity": "high",
      "category": "bug",
      "title": "Division by zero",
      "description": "denominator may be zero when the slice is empty",
      "line_start": 14,
      "line_end": 14,
      "confidence": 0.9,
      "suggested_fix": "guard with if len(values) == 0"
    }
  ]
}` + "\n```"

	parsed, err := ParseResponse(text, NameAnalyzer, "pkg/stats/mean.go")
	require.NoError(t, err)

	assert.Equal(t, "The divisor is never checked before use.", parsed.Reasoning)
	require.Len(t, parsed.Findings, 1)
	f := parsed.Findings[0]
	assert.Equal(t, "Division by zero", f.Title)
	assert.Equal(t, domain.SeverityHigh, f.Severity)
	assert.Equal(t, domain.CategoryBug, f.Category)
	assert.Equal(t, "pkg/stats/mean.go", f.FilePath)
	assert.Equal(t, NameAnalyzer, f.AgentSource)
	assert.Equal(t, 14, f.LineStart)
	assert.NotEmpty(t, f.ID)
}

func TestParseResponse_RawJSON(t *testing.T) {
	parsed, err := ParseResponse(`{"reasoning": "ok", "findings": []}`, NameSecurity, "main.go")
	require.NoError(t, err)
	assert.Equal(t, "ok", parsed.Reasoning)
	assert.Empty(t, parsed.Findings)
}

func TestParseResponse_Prose(t *testing.T) {
	_, err := ParseResponse("The code looks fine to me!", NameAnalyzer, "main.go")
	require.Error(t, err)
}

func TestParseResponse_CoercesInvalidLabels(t *testing.T) {
	text := `{"reasoning": "r", "findings": [
		{"severity": "EXTREME", "category": "style", "title": "Missing doc comment", "confidence": 1.7}
	]}`

	parsed, err := ParseResponse(text, NameDocumenter, "api.go")
	require.NoError(t, err)
	require.Len(t, parsed.Findings, 1)

	f := parsed.Findings[0]
	assert.Equal(t, domain.SeverityMedium, f.Severity)
	assert.Equal(t, domain.CategoryDocumentation, f.Category)
	assert.Equal(t, 1.0, f.Confidence)
}

func TestParseResponse_DropsUntitledFindings(t *testing.T) {
	text := `{"reasoning": "r", "findings": [
		{"severity": "low", "category": "bug", "title": "  "},
		{"severity": "low", "category": "bug", "title": "Real issue"}
	]}`

	parsed, err := ParseResponse(text, NameAnalyzer, "a.go")
	require.NoError(t, err)
	require.Len(t, parsed.Findings, 1)
	assert.Equal(t, "Real issue", parsed.Findings[0].Title)
}

func TestParseResponse_NestedCodeFence(t *testing.T) {
	text := "```json\n" +
		`{"reasoning": "r", "findings": [{"severity": "low", "category": "bug", "title": "T",
		"suggested_fix": "Use:\n\n` + "```go\nfunc fixed() {}\n```" + `"}]}` + "\n```"

	parsed, err := ParseResponse(text, NameAnalyzer, "a.go")
	require.NoError(t, err)
	require.Len(t, parsed.Findings, 1)
	assert.Contains(t, parsed.Findings[0].SuggestedFix, "func fixed()")
}

func TestApplyReflection(t *testing.T) {
	findings := []domain.Finding{
		{ID: "keep", Confidence: 0.8},
		{ID: "drop", Confidence: 0.9},
		{ID: "adjust", Confidence: 0.5},
	}
	verdict := reflectionVerdict{
		FalsePositives:        []string{"drop", "unknown-id"},
		ConfidenceAdjustments: map[string]float64{"adjust": 0.95, "missing": 0.1},
	}

	kept := applyReflection(findings, verdict)
	require.Len(t, kept, 2)
	assert.Equal(t, "keep", kept[0].ID)
	assert.Equal(t, 0.8, kept[0].Confidence)
	assert.Equal(t, "adjust", kept[1].ID)
	assert.Equal(t, 0.95, kept[1].Confidence)
}

func TestApplyReflection_ClampsAdjustments(t *testing.T) {
	kept := applyReflection(
		[]domain.Finding{{ID: "a", Confidence: 0.5}},
		reflectionVerdict{ConfidenceAdjustments: map[string]float64{"a": 2.5}},
	)
	require.Len(t, kept, 1)
	assert.Equal(t, 1.0, kept[0].Confidence)
}

func TestFilterByConfidence(t *testing.T) {
	findings := []domain.Finding{
		{ID: "low", Confidence: 0.3},
		{ID: "edge", Confidence: 0.7},
		{ID: "high", Confidence: 0.9},
	}

	kept := filterByConfidence(findings, 0.7)
	require.Len(t, kept, 2)
	assert.Equal(t, "edge", kept[0].ID)
	assert.Equal(t, "high", kept[1].ID)

	assert.Len(t, filterByConfidence(findings, 0), 3)
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey("main.go", "abc123", NameAnalyzer, "v3")
	b := CacheKey("main.go", "abc123", NameAnalyzer, "v3")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, CacheKey("util.go", "abc123", NameAnalyzer, "v3"))
	assert.NotEqual(t, a, CacheKey("main.go", "abc124", NameAnalyzer, "v3"))
	assert.NotEqual(t, a, CacheKey("main.go", "abc123", NameSecurity, "v3"))
	assert.NotEqual(t, a, CacheKey("main.go", "abc123", NameAnalyzer, "v4"))
}
