package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/agent-reviewer/internal/usecase/agent"
)

func TestParseOptions_Defaults(t *testing.T) {
	opts := ParseOptions(nil)
	assert.True(t, opts.EnableSecurity)
	assert.True(t, opts.EnablePerformance)
	assert.True(t, opts.EnableDocumentation)
	assert.Equal(t, 0.7, opts.ConfidenceThreshold)
	assert.Equal(t, 0.0, opts.CostLimitUSD)
	assert.False(t, opts.PostComments)
}

func TestParseOptions_Overrides(t *testing.T) {
	opts := ParseOptions(map[string]interface{}{
		"enable_security":      false,
		"enable_documentation": false,
		"confidence_threshold": 0.9,
		"cost_limit_usd":       5,
		"post_comments":        true,
	})
	assert.False(t, opts.EnableSecurity)
	assert.True(t, opts.EnablePerformance)
	assert.False(t, opts.EnableDocumentation)
	assert.Equal(t, 0.9, opts.ConfidenceThreshold)
	assert.Equal(t, 5.0, opts.CostLimitUSD)
	assert.True(t, opts.PostComments)
}

func TestParseOptions_IgnoresUnknownAndMistyped(t *testing.T) {
	opts := ParseOptions(map[string]interface{}{
		"enable_security":      "yes",
		"confidence_threshold": "high",
		"cost_limit_usd":       -3.0,
		"frobnicate":           true,
	})
	assert.True(t, opts.EnableSecurity)
	assert.Equal(t, 0.7, opts.ConfidenceThreshold)
	assert.Equal(t, 0.0, opts.CostLimitUSD)
}

func TestParseOptions_RejectsOutOfRangeThreshold(t *testing.T) {
	opts := ParseOptions(map[string]interface{}{"confidence_threshold": 1.5})
	assert.Equal(t, 0.7, opts.ConfidenceThreshold)
}

func TestEnabledAgents(t *testing.T) {
	all := DefaultOptions().EnabledAgents()
	assert.Equal(t, []string{agent.NameAnalyzer, agent.NameSecurity, agent.NameOptimizer, agent.NameDocumenter}, all)

	minimal := ParseOptions(map[string]interface{}{
		"enable_security":      false,
		"enable_performance":   false,
		"enable_documentation": false,
	}).EnabledAgents()
	assert.Equal(t, []string{agent.NameAnalyzer}, minimal, "the analyzer always runs")
}
