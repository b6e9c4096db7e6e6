// Package github posts consolidated review results to a GitHub pull
// request as a single PR review.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	llmhttp "github.com/bkyoung/agent-reviewer/internal/adapter/llm/http"
	"github.com/bkyoung/agent-reviewer/internal/domain"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
)

// ReviewEvent is the GitHub review verdict attached to a posted review.
type ReviewEvent string

const (
	EventApprove        ReviewEvent = "APPROVE"
	EventRequestChanges ReviewEvent = "REQUEST_CHANGES"
	EventComment        ReviewEvent = "COMMENT"
)

// Poster publishes one PR review per completed code review. It satisfies
// the orchestrator's comment poster port.
type Poster struct {
	token      string
	owner      string
	repo       string
	pullNumber int
	baseURL    string
	httpClient *http.Client
	retryConf  llmhttp.RetryConfig
}

// NewPoster creates a poster bound to one pull request. The token should
// be a personal access token or GITHUB_TOKEN from Actions.
func NewPoster(token, owner, repo string, pullNumber int) *Poster {
	return &Poster{
		token:      token,
		owner:      owner,
		repo:       repo,
		pullNumber: pullNumber,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf:  llmhttp.DefaultRetryConfig(),
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (p *Poster) SetBaseURL(url string) {
	p.baseURL = url
}

type createReviewRequest struct {
	Event ReviewEvent `json:"event"`
	Body  string      `json:"body"`
}

// Post publishes the report as a PR review. The review event follows the
// recommendation: reject and request_changes request changes, approve
// approves, anything else is a plain comment.
func (p *Poster) Post(ctx context.Context, report domain.ReviewReport) error {
	body := createReviewRequest{
		Event: eventFor(report.Recommendation),
		Body:  renderBody(report),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal review request: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", p.baseURL, p.owner, p.repo, p.pullNumber)

	operation := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+p.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return llmhttp.NewTimeoutError("github", err.Error())
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return llmhttp.FromStatus("github", resp.StatusCode, string(msg))
	}

	if err := llmhttp.RetryWithBackoff(ctx, operation, p.retryConf); err != nil {
		return fmt.Errorf("post review to %s/%s#%d: %w", p.owner, p.repo, p.pullNumber, err)
	}
	return nil
}

func eventFor(recommendation string) ReviewEvent {
	switch recommendation {
	case domain.RecommendationReject, domain.RecommendationRequestChanges:
		return EventRequestChanges
	case domain.RecommendationApprove:
		return EventApprove
	default:
		return EventComment
	}
}

// maxBodyIssues caps the issue list so the review body stays within
// GitHub's comment size limits.
const maxBodyIssues = 25

func renderBody(report domain.ReviewReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Automated Code Review\n\n%s\n\n", report.ExecutiveSummary)
	fmt.Fprintf(&b, "**Score:** %.0f/100 | **Recommendation:** %s\n", report.OverallScore, report.Recommendation)

	if len(report.Issues) == 0 {
		return b.String()
	}

	issues := append([]domain.Finding(nil), report.Issues...)
	sort.SliceStable(issues, func(i, j int) bool {
		return domain.SeverityRank(issues[i].Severity) > domain.SeverityRank(issues[j].Severity)
	})
	if len(issues) > maxBodyIssues {
		issues = issues[:maxBodyIssues]
	}

	b.WriteString("\n| Severity | Issue | Location |\n|---|---|---|\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "| %s | %s | %s:%d |\n", issue.Severity, issue.Title, issue.FilePath, issue.LineStart)
	}
	if len(report.Issues) > maxBodyIssues {
		fmt.Fprintf(&b, "\n_%d further issues omitted; see the full report._\n", len(report.Issues)-maxBodyIssues)
	}
	return b.String()
}
