package domain

import "time"

// Review lifecycle statuses.
const (
	ReviewStatusPending        = "pending"
	ReviewStatusRunning        = "running"
	ReviewStatusCompleted      = "completed"
	ReviewStatusFailed         = "failed"
	ReviewStatusBudgetExceeded = "budget_exceeded"
)

// Recommendations produced by consolidation.
const (
	RecommendationApprove        = "approve"
	RecommendationRequestChanges = "request_changes"
	RecommendationReject         = "reject"
)

// Statistics discloses what the review actually covered, including any
// shortfall from failed or skipped agents.
type Statistics struct {
	TotalIssues      int            `json:"totalIssues"`
	IssuesBySeverity map[string]int `json:"issuesBySeverity"`
	IssuesByCategory map[string]int `json:"issuesByCategory"`
	FilesReviewed    int            `json:"filesReviewed"`
	AgentsSucceeded  int            `json:"agentsSucceeded"`
	AgentsFailed     int            `json:"agentsFailed"`
	AgentsSkipped    int            `json:"agentsSkipped"`
	FailedAgents     []string       `json:"failedAgents,omitempty"`
	CacheHits        int            `json:"cacheHits"`
	CacheMisses      int            `json:"cacheMisses"`
	CacheHitRate     float64        `json:"cacheHitRate"`
	TotalTokens      int            `json:"totalTokens"`
	TotalCostUSD     float64        `json:"totalCostUSD"`
	Duration         time.Duration  `json:"duration"`
}

// ReviewReport is the serializable outcome of one review.
type ReviewReport struct {
	ReviewID         string     `json:"reviewId"`
	ExecutiveSummary string     `json:"executiveSummary"`
	Issues           []Finding  `json:"issues"`
	OverallScore     float64    `json:"overallScore"`
	Recommendation   string     `json:"recommendation"`
	Statistics       Statistics `json:"statistics"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      time.Time  `json:"completedAt"`
}
