// Package json writes review reports to disk as JSON for machine
// consumption and archival.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// Writer persists review reports as pretty-printed JSON files.
type Writer struct{}

// NewWriter creates a JSON writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write persists a report to outputDir and returns the file path.
func (w *Writer) Write(ctx context.Context, report domain.ReviewReport, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filePath := filepath.Join(outputDir, fmt.Sprintf("review-%s.json", report.ReviewID))

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report to json: %w", err)
	}

	return filePath, nil
}
