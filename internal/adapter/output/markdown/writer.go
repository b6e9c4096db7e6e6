// Package markdown renders review reports as human-readable Markdown.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// Writer renders review reports into Markdown files.
type Writer struct{}

// NewWriter constructs a Markdown writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write persists a Markdown rendering of the report and returns its path.
func (w *Writer) Write(ctx context.Context, report domain.ReviewReport, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("review-%s.md", report.ReviewID))
	if err := os.WriteFile(path, []byte(Render(report)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write markdown: %w", err)
	}
	return path, nil
}

// Render builds the Markdown document for a report.
func Render(report domain.ReviewReport) string {
	var builder strings.Builder
	caser := cases.Title(language.English)

	builder.WriteString("# Code Review Report\n\n")
	builder.WriteString(fmt.Sprintf("- Review: %s\n", report.ReviewID))
	builder.WriteString(fmt.Sprintf("- Status: %s\n", report.Status))
	builder.WriteString(fmt.Sprintf("- Score: %.0f/100\n", report.OverallScore))
	builder.WriteString(fmt.Sprintf("- Recommendation: %s\n", caser.String(strings.ReplaceAll(report.Recommendation, "_", " "))))
	builder.WriteString(fmt.Sprintf("- Files reviewed: %d\n", report.Statistics.FilesReviewed))
	builder.WriteString(fmt.Sprintf("- Cost: $%.4f (%d tokens)\n\n", report.Statistics.TotalCostUSD, report.Statistics.TotalTokens))

	builder.WriteString("## Summary\n\n")
	builder.WriteString(report.ExecutiveSummary)
	builder.WriteString("\n\n")

	if len(report.Issues) == 0 {
		builder.WriteString("No issues reported.\n")
		return builder.String()
	}

	builder.WriteString("## Issues\n\n")
	for _, issue := range report.Issues {
		builder.WriteString(fmt.Sprintf("### %s (%s)\n", issue.Title, caser.String(issue.Severity)))
		builder.WriteString(fmt.Sprintf("- File: %s:%d-%d\n", issue.FilePath, issue.LineStart, issue.LineEnd))
		builder.WriteString(fmt.Sprintf("- Category: %s\n", issue.Category))
		builder.WriteString(fmt.Sprintf("- Confidence: %.0f%%\n", issue.Confidence*100))
		builder.WriteString(fmt.Sprintf("- Reported by: %s\n", strings.Join(issue.Sources, ", ")))
		if issue.Description != "" {
			builder.WriteString(fmt.Sprintf("\n%s\n", issue.Description))
		}
		if issue.SuggestedFix != "" {
			builder.WriteString(fmt.Sprintf("\nSuggested fix:\n\n%s\n", issue.SuggestedFix))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}
