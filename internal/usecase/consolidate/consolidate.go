// Package consolidate merges per-agent findings into a single ordered,
// deduplicated issue list with a deterministic score, recommendation, and
// executive summary.
package consolidate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

// Policy controls scoring and summary shape.
type Policy struct {
	Penalties        map[string]float64 // score penalty per severity
	ApproveThreshold float64            // scores below this cannot approve
	TopN             int                // issue titles quoted in the summary
}

// DefaultPolicy returns the standard scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		Penalties: map[string]float64{
			domain.SeverityCritical: 25,
			domain.SeverityHigh:     10,
			domain.SeverityMedium:   5,
			domain.SeverityLow:      2,
			domain.SeverityInfo:     0,
		},
		ApproveThreshold: 70,
		TopN:             5,
	}
}

// Consolidation is the merged outcome of all agent results for one review.
type Consolidation struct {
	Issues         []domain.Finding
	Score          float64
	Recommendation string
	Summary        string
}

// Consolidator applies a Policy to agent results.
type Consolidator struct {
	policy Policy
}

// New creates a consolidator. Zero policy fields fall back to defaults.
func New(policy Policy) *Consolidator {
	defaults := DefaultPolicy()
	if policy.Penalties == nil {
		policy.Penalties = defaults.Penalties
	}
	if policy.ApproveThreshold <= 0 {
		policy.ApproveThreshold = defaults.ApproveThreshold
	}
	if policy.TopN <= 0 {
		policy.TopN = defaults.TopN
	}
	return &Consolidator{policy: policy}
}

// Consolidate merges every finding from the given results, deduplicates
// overlapping reports, orders them, and derives the score, recommendation,
// and summary. The output is a pure function of the input: the same results
// always produce the identical consolidation.
func (c *Consolidator) Consolidate(results map[string]domain.AgentResult) Consolidation {
	var findings []domain.Finding
	for _, result := range results {
		findings = append(findings, result.Findings...)
	}

	issues := dedupe(findings)
	sortIssues(issues)

	score := c.score(issues)
	recommendation := c.recommend(issues, score)

	return Consolidation{
		Issues:         issues,
		Score:          score,
		Recommendation: recommendation,
		Summary:        c.summarize(issues, score, recommendation),
	}
}

// dedupe merges findings that report the same problem: same file, same
// category, overlapping line ranges. The highest-confidence finding
// survives; merged descriptions are appended with provenance tags and
// agent sources are unioned.
func dedupe(findings []domain.Finding) []domain.Finding {
	// Sort candidates so the survivor of each cluster, and the order
	// merged descriptions are appended in, never depend on map iteration.
	sorted := make([]domain.Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].ID < sorted[j].ID
	})

	var survivors []domain.Finding
	for _, candidate := range sorted {
		merged := false
		for i := range survivors {
			if survivors[i].Category != candidate.Category {
				continue
			}
			if !survivors[i].Overlaps(candidate) {
				continue
			}
			mergeInto(&survivors[i], candidate)
			merged = true
			break
		}
		if !merged {
			survivors = append(survivors, candidate)
		}
	}
	return survivors
}

// mergeInto folds a duplicate finding into its surviving cluster.
func mergeInto(survivor *domain.Finding, dup domain.Finding) {
	if dup.Description != "" && dup.Description != survivor.Description {
		survivor.Description += fmt.Sprintf("\n\n[%s]: %s", dup.AgentSource, dup.Description)
	}
	if survivor.SuggestedFix == "" {
		survivor.SuggestedFix = dup.SuggestedFix
	}
	survivor.Sources = unionSources(survivor.Sources, dup.Sources)
}

func unionSources(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		seen[s] = true
	}
	union := make([]string, 0, len(seen))
	for s := range seen {
		union = append(union, s)
	}
	sort.Strings(union)
	return union
}

// sortIssues imposes the total presentation order: severity descending,
// confidence descending, file path, line, then ID as the final tiebreak.
func sortIssues(issues []domain.Finding) {
	sort.Slice(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if ra, rb := domain.SeverityRank(a.Severity), domain.SeverityRank(b.Severity); ra != rb {
			return ra > rb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		return a.ID < b.ID
	})
}

// score starts at 100 and subtracts the policy penalty for each issue,
// flooring at zero.
func (c *Consolidator) score(issues []domain.Finding) float64 {
	score := 100.0
	for _, issue := range issues {
		score -= c.policy.Penalties[issue.Severity]
	}
	if score < 0 {
		score = 0
	}
	return score
}

// recommend derives the recommendation from the issues and score alone.
func (c *Consolidator) recommend(issues []domain.Finding, score float64) string {
	anyHigh := false
	for _, issue := range issues {
		switch issue.Severity {
		case domain.SeverityCritical:
			return domain.RecommendationReject
		case domain.SeverityHigh:
			anyHigh = true
		}
	}
	if anyHigh || score < c.policy.ApproveThreshold {
		return domain.RecommendationRequestChanges
	}
	return domain.RecommendationApprove
}

// summarize renders the deterministic executive summary. It is assembled
// from counts and titles only; no model output is quoted.
func (c *Consolidator) summarize(issues []domain.Finding, score float64, recommendation string) string {
	if len(issues) == 0 {
		return fmt.Sprintf("No issues found. Score: %.0f/100. Recommendation: %s.", score, recommendation)
	}

	bySeverity := make(map[string]int)
	byCategory := make(map[string]int)
	for _, issue := range issues {
		bySeverity[issue.Severity]++
		byCategory[issue.Category]++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d issue", len(issues))
	if len(issues) != 1 {
		sb.WriteString("s")
	}

	var severityParts []string
	for _, severity := range []string{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow, domain.SeverityInfo} {
		if n := bySeverity[severity]; n > 0 {
			severityParts = append(severityParts, fmt.Sprintf("%d %s", n, severity))
		}
	}
	fmt.Fprintf(&sb, " (%s)", strings.Join(severityParts, ", "))

	var categoryParts []string
	for _, category := range []string{domain.CategoryBug, domain.CategorySecurity, domain.CategoryPerformance, domain.CategoryDocumentation} {
		if n := byCategory[category]; n > 0 {
			categoryParts = append(categoryParts, fmt.Sprintf("%d %s", n, category))
		}
	}
	fmt.Fprintf(&sb, " across categories: %s.", strings.Join(categoryParts, ", "))
	fmt.Fprintf(&sb, " Score: %.0f/100. Recommendation: %s.", score, recommendation)

	top := c.policy.TopN
	if top > len(issues) {
		top = len(issues)
	}
	sb.WriteString(" Top issues:")
	for i := 0; i < top; i++ {
		issue := issues[i]
		fmt.Fprintf(&sb, " %d) %s (%s, %s:%d).", i+1, issue.Title, issue.Severity, issue.FilePath, issue.LineStart)
	}
	return sb.String()
}
