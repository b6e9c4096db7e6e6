package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Severity levels, ordered from least to most severe.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Finding categories.
const (
	CategoryBug           = "bug"
	CategorySecurity      = "security"
	CategoryPerformance   = "performance"
	CategoryDocumentation = "documentation"
)

// severityRanks orders severities for sorting and comparisons.
// Higher rank means more severe.
var severityRanks = map[string]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// SeverityRank returns the sort rank for a severity level.
// Unknown severities rank below info so malformed agent output never
// outranks a real finding.
func SeverityRank(severity string) int {
	if rank, ok := severityRanks[severity]; ok {
		return rank
	}
	return -1
}

// ValidSeverity reports whether the given string is a known severity level.
func ValidSeverity(severity string) bool {
	_, ok := severityRanks[severity]
	return ok
}

// CodeFile is a single file under review. Immutable once constructed.
type CodeFile struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	Language    string `json:"language"`
	Size        int    `json:"size"`
	ContentHash string `json:"contentHash"`
}

// NewCodeFile constructs a CodeFile, computing the content hash, byte size,
// and detecting the language from the file extension.
func NewCodeFile(path, content string) CodeFile {
	sum := sha256.Sum256([]byte(content))
	return CodeFile{
		Path:        path,
		Content:     content,
		Language:    DetectLanguage(path),
		Size:        len(content),
		ContentHash: hex.EncodeToString(sum[:]),
	}
}

// languagesByExtension maps file extensions to language tags used for
// knowledge retrieval and prompt construction.
var languagesByExtension = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cs":    "csharp",
	".php":   "php",
	".kt":    "kotlin",
	".swift": "swift",
	".sh":    "shell",
	".sql":   "sql",
	".tf":    "terraform",
	".yaml":  "yaml",
	".yml":   "yaml",
}

// DetectLanguage returns a language tag for a file path, or "unknown".
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languagesByExtension[ext]; ok {
		return lang
	}
	return "unknown"
}

// Finding represents a single issue detected by an agent or static analyzer.
type Finding struct {
	ID           string   `json:"id"`
	AgentSource  string   `json:"agentSource"`
	Severity     string   `json:"severity"`
	Category     string   `json:"category"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	FilePath     string   `json:"filePath"`
	LineStart    int      `json:"lineStart"`
	LineEnd      int      `json:"lineEnd"`
	Confidence   float64  `json:"confidence"`
	SuggestedFix string   `json:"suggestedFix,omitempty"`
	Sources      []string `json:"sources,omitempty"` // All agents that reported this issue after consolidation
}

// FindingInput captures the information required to create a Finding.
type FindingInput struct {
	AgentSource  string
	Severity     string
	Category     string
	Title        string
	Description  string
	FilePath     string
	LineStart    int
	LineEnd      int
	Confidence   float64
	SuggestedFix string
}

// NewFinding constructs a Finding with a deterministic ID derived from its
// content, so identical findings hash to the same identity across runs.
func NewFinding(input FindingInput) Finding {
	if input.LineEnd < input.LineStart {
		input.LineEnd = input.LineStart
	}
	return Finding{
		ID:           hashFinding(input),
		AgentSource:  input.AgentSource,
		Severity:     input.Severity,
		Category:     input.Category,
		Title:        input.Title,
		Description:  input.Description,
		FilePath:     input.FilePath,
		LineStart:    input.LineStart,
		LineEnd:      input.LineEnd,
		Confidence:   input.Confidence,
		SuggestedFix: input.SuggestedFix,
		Sources:      []string{input.AgentSource},
	}
}

func hashFinding(input FindingInput) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d",
		input.AgentSource,
		input.Severity,
		input.Category,
		input.Title,
		input.FilePath,
		input.LineStart,
		input.LineEnd,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Overlaps reports whether two findings cover intersecting line ranges in
// the same file.
func (f Finding) Overlaps(other Finding) bool {
	if f.FilePath != other.FilePath {
		return false
	}
	return f.LineStart <= other.LineEnd && other.LineStart <= f.LineEnd
}
