package agent

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// PromptVersion participates in the cache key. Bump it whenever the prompt
// templates or the expected output schema change, so stale cached results
// are never replayed against a new contract.
const PromptVersion = "v3"

// strictFormatInstruction is appended to the prompt on the single parse
// retry when the model's first answer was not valid structured output.
const strictFormatInstruction = "\n\nIMPORTANT: Your previous response could not be parsed. " +
	"Respond with ONLY a fenced ```json code block containing a single JSON object " +
	"with \"reasoning\" (string) and \"findings\" (array) keys. No prose outside the block."

// PromptBuilder renders the per-agent review prompts.
type PromptBuilder struct {
	template *template.Template
}

// NewPromptBuilder creates a builder with the default review template.
func NewPromptBuilder() (*PromptBuilder, error) {
	tmpl, err := template.New("review").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(reviewPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse review template: %w", err)
	}
	return &PromptBuilder{template: tmpl}, nil
}

// promptData holds everything available to the review template.
type promptData struct {
	FilePath       string
	Language       string
	Content        string
	Context        []string
	StaticFindings []string
}

// Build renders the user prompt for one (agent, file) run.
func (b *PromptBuilder) Build(file domain.CodeFile, contextDocs []string, staticFindings []domain.Finding) (string, error) {
	data := promptData{
		FilePath: file.Path,
		Language: file.Language,
		Content:  file.Content,
		Context:  contextDocs,
	}
	for _, f := range staticFindings {
		data.StaticFindings = append(data.StaticFindings,
			fmt.Sprintf("- %s (%s, lines %d-%d): %s", f.Title, f.Severity, f.LineStart, f.LineEnd, f.Description))
	}

	var buf bytes.Buffer
	if err := b.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render review prompt: %w", err)
	}
	return buf.String(), nil
}

// SystemPrompt returns the persona and output contract for an agent.
func SystemPrompt(agentName string) string {
	persona, ok := agentPersonas[agentName]
	if !ok {
		persona = agentPersonas[NameAnalyzer]
	}
	return persona + outputContract
}

var agentPersonas = map[string]string{
	NameAnalyzer: `You are a senior software engineer reviewing code for correctness.
Focus on logic errors, unhandled edge cases, off-by-one mistakes, nil/null
dereferences, division by zero, race conditions, and resource leaks.`,
	NameSecurity: `You are an application security engineer reviewing code for vulnerabilities.
Focus on injection flaws, unsafe deserialization, hardcoded credentials,
path traversal, weak cryptography, and missing input validation.`,
	NameOptimizer: `You are a performance engineer reviewing code for efficiency.
Focus on algorithmic complexity, unnecessary allocations, N+1 query
patterns, unbounded growth, and avoidable work inside hot loops.`,
	NameDocumenter: `You are a technical writer reviewing code for clarity and documentation.
Focus on missing or misleading doc comments, unclear naming, undocumented
invariants, and public APIs that lack usage guidance.`,
}

const outputContract = `

Think through the code step by step before concluding. Then respond with a
fenced ` + "```json" + ` code block containing a single JSON object:

{
  "reasoning": "your step-by-step analysis",
  "findings": [
    {
      "severity": "info|low|medium|high|critical",
      "category": "bug|security|performance|documentation",
      "title": "short title",
      "description": "what is wrong and why it matters",
      "line_start": 1,
      "line_end": 1,
      "confidence": 0.0,
      "suggested_fix": "optional concrete fix"
    }
  ]
}

Report only genuine issues. An empty findings array is a valid answer.`

const reviewPromptTemplate = `Review the following file.

## File: {{.FilePath}} ({{.Language}})

` + "```{{.Language}}\n{{.Content}}\n```" + `
{{if .Context}}
## Relevant guidance

{{join .Context "\n\n"}}
{{end}}{{if .StaticFindings}}
## Static analysis results

{{join .StaticFindings "\n"}}
{{end}}`

// reflectionSystemPrompt drives the optional self-reflection pass.
const reflectionSystemPrompt = `You are auditing a code review for false positives.
For each reported finding, decide whether it is a genuine issue in the code
shown. Respond with a fenced ` + "```json" + ` code block:

{
  "false_positives": ["finding-id", ...],
  "confidence_adjustments": {"finding-id": 0.0}
}

List a finding under false_positives only when you are confident it is wrong.
Use confidence_adjustments to raise or lower confidence for findings you keep.
Both fields may be empty.`

// buildReflectionPrompt renders the self-reflection user prompt.
func buildReflectionPrompt(file domain.CodeFile, findings []domain.Finding) string {
	var sb strings.Builder
	sb.WriteString("## File: ")
	sb.WriteString(file.Path)
	sb.WriteString("\n\n```")
	sb.WriteString(file.Language)
	sb.WriteString("\n")
	sb.WriteString(file.Content)
	sb.WriteString("\n```\n\n## Findings under review\n\n")
	for _, f := range findings {
		fmt.Fprintf(&sb, "- id: %s\n  severity: %s\n  lines: %d-%d\n  title: %s\n  description: %s\n  confidence: %.2f\n",
			f.ID, f.Severity, f.LineStart, f.LineEnd, f.Title, f.Description, f.Confidence)
	}
	return sb.String()
}
