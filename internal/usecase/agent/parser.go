package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// jsonBlockRegex matches from the first ```json (or ```) fence to the LAST
// closing fence. The greedy match is deliberate: suggested fixes often embed
// their own code fences, and we want the outermost block.
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*)```")

// extractJSONBlock pulls the JSON payload out of a markdown-wrapped response.
// Returns the original text when no fence is present, since the model may
// have answered with raw JSON.
func extractJSONBlock(text string) string {
	matches := jsonBlockRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(text)
}

// rawFinding is the wire shape a model reports findings in.
type rawFinding struct {
	Severity     string  `json:"severity"`
	Category     string  `json:"category"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	LineStart    int     `json:"line_start"`
	LineEnd      int     `json:"line_end"`
	Confidence   float64 `json:"confidence"`
	SuggestedFix string  `json:"suggested_fix"`
}

// ParsedResponse is the validated structured output of one agent call.
type ParsedResponse struct {
	Reasoning string
	Findings  []domain.Finding
}

// ParseResponse parses an agent's structured output. Severity and category
// values the model invents are coerced to safe defaults rather than dropped:
// a malformed label is not evidence the finding itself is wrong.
func ParseResponse(text, agentName, filePath string) (ParsedResponse, error) {
	jsonText := extractJSONBlock(text)

	var wire struct {
		Reasoning string       `json:"reasoning"`
		Findings  []rawFinding `json:"findings"`
	}
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return ParsedResponse{}, fmt.Errorf("failed to parse agent response: %w", err)
	}

	parsed := ParsedResponse{Reasoning: wire.Reasoning}
	for _, rf := range wire.Findings {
		if strings.TrimSpace(rf.Title) == "" {
			continue
		}
		severity := strings.ToLower(strings.TrimSpace(rf.Severity))
		if !domain.ValidSeverity(severity) {
			severity = domain.SeverityMedium
		}
		category := strings.ToLower(strings.TrimSpace(rf.Category))
		switch category {
		case domain.CategoryBug, domain.CategorySecurity, domain.CategoryPerformance, domain.CategoryDocumentation:
		default:
			category = DefaultCategory(agentName)
		}
		confidence := rf.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		parsed.Findings = append(parsed.Findings, domain.NewFinding(domain.FindingInput{
			AgentSource:  agentName,
			Severity:     severity,
			Category:     category,
			Title:        strings.TrimSpace(rf.Title),
			Description:  strings.TrimSpace(rf.Description),
			FilePath:     filePath,
			LineStart:    rf.LineStart,
			LineEnd:      rf.LineEnd,
			Confidence:   confidence,
			SuggestedFix: strings.TrimSpace(rf.SuggestedFix),
		}))
	}
	return parsed, nil
}

// reflectionVerdict is the wire shape of a self-reflection response.
type reflectionVerdict struct {
	FalsePositives        []string           `json:"false_positives"`
	ConfidenceAdjustments map[string]float64 `json:"confidence_adjustments"`
}

// parseReflection parses the self-reflection verdict. A response that cannot
// be parsed yields a zero verdict: reflection is advisory and must never
// discard findings on a formatting failure.
func parseReflection(text string) (reflectionVerdict, error) {
	var verdict reflectionVerdict
	if err := json.Unmarshal([]byte(extractJSONBlock(text)), &verdict); err != nil {
		return reflectionVerdict{}, fmt.Errorf("failed to parse reflection response: %w", err)
	}
	return verdict, nil
}

// applyReflection drops findings named as false positives and applies
// confidence adjustments to the rest. IDs the verdict names that do not
// exist are ignored.
func applyReflection(findings []domain.Finding, verdict reflectionVerdict) []domain.Finding {
	drop := make(map[string]bool, len(verdict.FalsePositives))
	for _, id := range verdict.FalsePositives {
		drop[id] = true
	}

	kept := make([]domain.Finding, 0, len(findings))
	for _, f := range findings {
		if drop[f.ID] {
			continue
		}
		if adjusted, ok := verdict.ConfidenceAdjustments[f.ID]; ok {
			if adjusted < 0 {
				adjusted = 0
			}
			if adjusted > 1 {
				adjusted = 1
			}
			f.Confidence = adjusted
		}
		kept = append(kept, f)
	}
	return kept
}

// filterByConfidence removes findings whose confidence is strictly below the
// threshold.
func filterByConfidence(findings []domain.Finding, threshold float64) []domain.Finding {
	if threshold <= 0 {
		return findings
	}
	kept := make([]domain.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Confidence >= threshold {
			kept = append(kept, f)
		}
	}
	return kept
}
