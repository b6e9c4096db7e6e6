package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

func sampleReport() domain.ReviewReport {
	return domain.ReviewReport{
		ReviewID:         "rvw-1",
		ExecutiveSummary: "Found 2 issues.",
		OverallScore:     65,
		Recommendation:   domain.RecommendationRequestChanges,
		Issues: []domain.Finding{
			{Severity: "low", Title: "Sloppy naming", FilePath: "a.go", LineStart: 2},
			{Severity: "critical", Title: "SQL injection", FilePath: "db.go", LineStart: 40},
		},
	}
}

func TestPostSendsReview(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody createReviewRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	poster := NewPoster("ghp_token", "acme", "widgets", 42)
	poster.SetBaseURL(server.URL)

	require.NoError(t, poster.Post(context.Background(), sampleReport()))

	assert.Equal(t, "/repos/acme/widgets/pulls/42/reviews", gotPath)
	assert.Equal(t, "Bearer ghp_token", gotAuth)
	assert.Equal(t, EventRequestChanges, gotBody.Event)
	assert.Contains(t, gotBody.Body, "Found 2 issues.")
	assert.Contains(t, gotBody.Body, "65/100")
	// Critical issues are listed before low severity ones.
	assert.Less(t, strings.Index(gotBody.Body, "SQL injection"), strings.Index(gotBody.Body, "Sloppy naming"))
}

func TestPostApproval(t *testing.T) {
	var gotBody createReviewRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	poster := NewPoster("tok", "acme", "widgets", 7)
	poster.SetBaseURL(server.URL)

	report := sampleReport()
	report.Issues = nil
	report.OverallScore = 100
	report.Recommendation = domain.RecommendationApprove

	require.NoError(t, poster.Post(context.Background(), report))
	assert.Equal(t, EventApprove, gotBody.Event)
	assert.NotContains(t, gotBody.Body, "| Severity |")
}

func TestPostClientErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	poster := NewPoster("tok", "acme", "widgets", 7)
	poster.SetBaseURL(server.URL)

	err := poster.Post(context.Background(), sampleReport())
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPostRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	poster := NewPoster("tok", "acme", "widgets", 7)
	poster.SetBaseURL(server.URL)
	poster.retryConf.InitialBackoff = 0
	poster.retryConf.MaxBackoff = 0

	require.NoError(t, poster.Post(context.Background(), sampleReport()))
	assert.Equal(t, 3, calls)
}

func TestRenderBodyCapsIssueList(t *testing.T) {
	report := sampleReport()
	report.Issues = nil
	for i := 0; i < maxBodyIssues+5; i++ {
		report.Issues = append(report.Issues, domain.Finding{
			Severity: "medium", Title: "Issue", FilePath: "a.go", LineStart: i,
		})
	}

	body := renderBody(report)
	assert.Contains(t, body, "5 further issues omitted")
}
