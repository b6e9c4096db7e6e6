// Package sarif exports consolidated review issues in SARIF 2.1.0 so they
// surface in code scanning UIs.
package sarif

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// Writer persists review reports as SARIF files.
type Writer struct{}

// NewWriter creates a SARIF writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write persists a report to outputDir and returns the file path.
func (w *Writer) Write(ctx context.Context, report domain.ReviewReport, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filePath := filepath.Join(outputDir, fmt.Sprintf("review-%s.sarif", report.ReviewID))

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create sarif file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Convert(report)); err != nil {
		return "", fmt.Errorf("failed to encode report to sarif: %w", err)
	}

	return filePath, nil
}

// Convert maps a review report onto the SARIF 2.1.0 structure.
func Convert(report domain.ReviewReport) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(report.Issues))

	for _, issue := range report.Issues {
		// SARIF requires non-empty message text.
		messageText := issue.Description
		if messageText == "" {
			messageText = issue.Title
		}

		ruleID := issue.Category
		if ruleID == "" {
			ruleID = "code-review"
		}

		result := map[string]interface{}{
			"ruleId": ruleID,
			"level":  convertSeverity(issue.Severity),
			"message": map[string]interface{}{
				"text": messageText,
			},
		}

		if issue.FilePath != "" {
			physicalLocation := map[string]interface{}{
				"artifactLocation": map[string]interface{}{
					"uri": issue.FilePath,
				},
			}
			// Don't fabricate line 1 for findings without a location.
			if issue.LineStart >= 1 {
				endLine := issue.LineEnd
				if endLine < issue.LineStart {
					endLine = issue.LineStart
				}
				physicalLocation["region"] = map[string]interface{}{
					"startLine": issue.LineStart,
					"endLine":   endLine,
				}
			}
			result["locations"] = []map[string]interface{}{
				{"physicalLocation": physicalLocation},
			}
		}

		properties := map[string]interface{}{
			"confidence": issue.Confidence,
			"sources":    issue.Sources,
		}
		if issue.SuggestedFix != "" {
			properties["suggestedFix"] = issue.SuggestedFix
		}
		result["properties"] = properties

		results = append(results, result)
	}

	return map[string]interface{}{
		"version": "2.1.0",
		"$schema": "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		"runs": []map[string]interface{}{
			{
				"tool": map[string]interface{}{
					"driver": map[string]interface{}{
						"name":           "agent-reviewer",
						"informationUri": "https://github.com/bkyoung/agent-reviewer",
						"rules":          []interface{}{},
					},
				},
				"results": results,
			},
		},
	}
}

// convertSeverity maps review severities onto SARIF levels.
func convertSeverity(severity string) string {
	switch severity {
	case domain.SeverityCritical, domain.SeverityHigh:
		return "error"
	case domain.SeverityMedium:
		return "warning"
	case domain.SeverityLow, domain.SeverityInfo:
		return "note"
	default:
		return "warning"
	}
}
