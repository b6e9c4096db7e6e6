// Package analysis runs configured external linters and converts their
// output into findings that participate in consolidation alongside agent
// findings.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

const defaultToolTimeout = 30 * time.Second

// unixLineRegex matches the common "file:line[:col]: message" linter
// output format.
var unixLineRegex = regexp.MustCompile(`^(.+?):(\d+)(?::\d+)?:\s*(.+)$`)

// Tool is one configured analyzer command for a language. The file under
// review is written to a temp file whose path replaces the {file}
// placeholder in Args.
type Tool struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Analyzer satisfies the review use case's Analyzer port by shelling out
// to per-language tools. Languages with no configured tool produce zero
// findings.
type Analyzer struct {
	tools map[string]Tool // keyed by language
}

// NewAnalyzer creates an analyzer with the given per-language tools.
func NewAnalyzer(tools map[string]Tool) *Analyzer {
	if tools == nil {
		tools = make(map[string]Tool)
	}
	return &Analyzer{tools: tools}
}

// Analyze runs the configured tool for the file's language. A non-zero
// exit with parseable output is normal linter behavior, not an error;
// failures to run the tool at all are returned for the caller to log.
func (a *Analyzer) Analyze(ctx context.Context, file domain.CodeFile) ([]domain.Finding, error) {
	tool, ok := a.tools[file.Language]
	if !ok {
		return nil, nil
	}

	path, cleanup, err := writeTemp(file)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := make([]string, len(tool.Args))
	for i, arg := range tool.Args {
		args[i] = strings.ReplaceAll(arg, "{file}", path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, tool.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	findings := parseUnixOutput(stdout.String(), file.Path)

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && len(findings) > 0 {
			// Linters exit non-zero when they find issues.
			return findings, nil
		}
		return nil, fmt.Errorf("analyzer %s failed: %w (stderr: %s)",
			tool.Command, runErr, strings.TrimSpace(stderr.String()))
	}
	return findings, nil
}

// parseUnixOutput converts "file:line[:col]: message" lines into findings
// attributed to the reviewed path.
func parseUnixOutput(output, filePath string) []domain.Finding {
	var findings []domain.Finding
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		matches := unixLineRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		lineNum, err := strconv.Atoi(matches[2])
		if err != nil {
			continue
		}
		message := strings.TrimSpace(matches[3])
		findings = append(findings, domain.NewFinding(domain.FindingInput{
			AgentSource: "static",
			Severity:    domain.SeverityMedium,
			Category:    domain.CategoryBug,
			Title:       message,
			Description: fmt.Sprintf("Reported by static analysis: %s", message),
			FilePath:    filePath,
			LineStart:   lineNum,
			LineEnd:     lineNum,
			Confidence:  1.0,
		}))
	}
	return findings
}

// writeTemp materializes the file content for tools that only read from
// disk, preserving the extension so language detection in the tool works.
func writeTemp(file domain.CodeFile) (string, func(), error) {
	f, err := os.CreateTemp("", "ar-analysis-*"+filepath.Ext(file.Path))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.WriteString(file.Content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
