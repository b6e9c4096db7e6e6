package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

func TestNewCodeFile(t *testing.T) {
	file := domain.NewCodeFile("pkg/util/math.py", "def divide(a, b):\n    return a / b\n")

	assert.Equal(t, "pkg/util/math.py", file.Path)
	assert.Equal(t, "python", file.Language)
	assert.Equal(t, len(file.Content), file.Size)
	assert.Len(t, file.ContentHash, 64)
}

func TestNewCodeFile_HashChangesWithContent(t *testing.T) {
	a := domain.NewCodeFile("main.go", "package main")
	b := domain.NewCodeFile("main.go", "package main\n")

	assert.NotEqual(t, a.ContentHash, b.ContentHash)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"server.go", "go"},
		{"script.PY", "python"},
		{"component.tsx", "typescript"},
		{"schema.sql", "sql"},
		{"Makefile", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DetectLanguage(tt.path))
		})
	}
}

func TestNewFinding_DeterministicID(t *testing.T) {
	input := domain.FindingInput{
		AgentSource: "analyzer",
		Severity:    domain.SeverityHigh,
		Category:    domain.CategoryBug,
		Title:       "possible nil dereference",
		FilePath:    "server.go",
		LineStart:   10,
		LineEnd:     12,
		Confidence:  0.9,
	}

	first := domain.NewFinding(input)
	second := domain.NewFinding(input)

	require.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"analyzer"}, first.Sources)
}

func TestNewFinding_NormalizesLineRange(t *testing.T) {
	finding := domain.NewFinding(domain.FindingInput{
		AgentSource: "analyzer",
		Severity:    domain.SeverityLow,
		Category:    domain.CategoryBug,
		FilePath:    "a.go",
		LineStart:   8,
		LineEnd:     3,
	})

	assert.Equal(t, 8, finding.LineEnd)
}

func TestFinding_Overlaps(t *testing.T) {
	base := domain.NewFinding(domain.FindingInput{
		AgentSource: "analyzer",
		Severity:    domain.SeverityMedium,
		Category:    domain.CategoryBug,
		FilePath:    "a.go",
		LineStart:   10,
		LineEnd:     20,
	})

	tests := []struct {
		name  string
		other domain.FindingInput
		want  bool
	}{
		{"intersecting range", domain.FindingInput{FilePath: "a.go", LineStart: 15, LineEnd: 25}, true},
		{"contained range", domain.FindingInput{FilePath: "a.go", LineStart: 12, LineEnd: 13}, true},
		{"touching boundary", domain.FindingInput{FilePath: "a.go", LineStart: 20, LineEnd: 30}, true},
		{"disjoint range", domain.FindingInput{FilePath: "a.go", LineStart: 21, LineEnd: 30}, false},
		{"different file", domain.FindingInput{FilePath: "b.go", LineStart: 15, LineEnd: 25}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.other.AgentSource = "security"
			tt.other.Severity = domain.SeverityMedium
			tt.other.Category = domain.CategoryBug
			other := domain.NewFinding(tt.other)
			assert.Equal(t, tt.want, base.Overlaps(other))
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, domain.SeverityRank(domain.SeverityCritical), domain.SeverityRank(domain.SeverityHigh))
	assert.Greater(t, domain.SeverityRank(domain.SeverityHigh), domain.SeverityRank(domain.SeverityMedium))
	assert.Greater(t, domain.SeverityRank(domain.SeverityMedium), domain.SeverityRank(domain.SeverityLow))
	assert.Greater(t, domain.SeverityRank(domain.SeverityLow), domain.SeverityRank(domain.SeverityInfo))
	assert.Equal(t, -1, domain.SeverityRank("catastrophic"))
	assert.False(t, domain.ValidSeverity("catastrophic"))
}

func TestAgentResult_Terminal(t *testing.T) {
	for _, status := range []string{
		domain.AgentStatusSucceeded,
		domain.AgentStatusFailed,
		domain.AgentStatusSkippedBudget,
		domain.AgentStatusSkippedCacheHit,
	} {
		assert.True(t, domain.AgentResult{Status: status}.Terminal(), status)
	}
	assert.False(t, domain.AgentResult{Status: "running"}.Terminal())
}
