package review

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bkyoung/agent-reviewer/internal/determinism"
	"github.com/bkyoung/agent-reviewer/internal/domain"
	"github.com/bkyoung/agent-reviewer/internal/usecase/agent"
	"github.com/bkyoung/agent-reviewer/internal/usecase/budget"
	"github.com/bkyoung/agent-reviewer/internal/usecase/consolidate"
)

const (
	defaultMaxWorkers = 4
	defaultRetrievalK = 3
	saveTimeout       = 10 * time.Second
)

// FaultError marks a whole-review failure: bad input or cancellation, as
// opposed to individual agent failures which the review absorbs.
type FaultError struct {
	Message string
}

func (e *FaultError) Error() string {
	return "review fault: " + e.Message
}

// Request describes one review to execute.
type Request struct {
	ReviewID string
	Files    []domain.CodeFile
	Options  map[string]interface{}
}

// Deps wires the orchestrator's ports. Runner is required; everything
// else is optional and degrades gracefully.
type Deps struct {
	Runner       Runner
	Consolidator *consolidate.Consolidator
	Analyzer     Analyzer
	Knowledge    KnowledgeBase
	Store        Store
	Poster       CommentPoster
	Logger       Logger
	CostModel    budget.CostModel
}

// Config holds orchestrator settings.
type Config struct {
	MaxWorkers       int  // concurrent agent invocations
	RetrievalK       int  // documents fetched per (language, aspect)
	EnableReflection bool // agents run a self-reflection pass
	EventBuffer      int  // progress channel capacity
}

// Orchestrator drives the review state machine.
type Orchestrator struct {
	deps   Deps
	config Config
}

// NewOrchestrator creates an orchestrator. Returns an error when required
// dependencies are missing.
func NewOrchestrator(deps Deps, config Config) (*Orchestrator, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if deps.Consolidator == nil {
		deps.Consolidator = consolidate.New(consolidate.Policy{})
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaultMaxWorkers
	}
	if config.RetrievalK <= 0 {
		config.RetrievalK = defaultRetrievalK
	}
	return &Orchestrator{deps: deps, config: config}, nil
}

// Execution is one in-flight review. Events streams progress and closes
// exactly when the review reaches a terminal state.
type Execution struct {
	Events <-chan Event

	em     *emitter
	done   chan struct{}
	report domain.ReviewReport
	err    error
}

// Wait blocks until the review reaches a terminal state.
func (x *Execution) Wait() (domain.ReviewReport, error) {
	<-x.done
	return x.report, x.err
}

// DroppedEvents returns how many progress events were discarded because
// the consumer fell behind.
func (x *Execution) DroppedEvents() uint64 {
	return x.em.Dropped()
}

// Start launches a review asynchronously. The caller consumes
// Events and then calls Wait for the final report.
func (o *Orchestrator) Start(ctx context.Context, req Request) *Execution {
	em := newEmitter(o.config.EventBuffer)
	x := &Execution{Events: em.ch, em: em, done: make(chan struct{})}
	go func() {
		defer close(x.done)
		defer em.close()
		x.report, x.err = o.run(ctx, req, em)
	}()
	return x
}

// ExecuteReview runs a review synchronously, discarding progress events.
func (o *Orchestrator) ExecuteReview(ctx context.Context, req Request) (domain.ReviewReport, error) {
	x := o.Start(ctx, req)
	for range x.Events {
	}
	return x.Wait()
}

// run executes the state machine. States advance strictly forward:
// pending, static_analysis, retrieval, agents_running, consolidating,
// then one of the terminal states.
func (o *Orchestrator) run(ctx context.Context, req Request, em *emitter) (domain.ReviewReport, error) {
	start := time.Now()
	report := domain.ReviewReport{
		ReviewID:  req.ReviewID,
		Status:    domain.ReviewStatusPending,
		CreatedAt: start,
	}
	em.state(StatePending)

	if len(req.Files) == 0 {
		report.Status = domain.ReviewStatusFailed
		em.state(StateFailed)
		return report, &FaultError{Message: "no files to review"}
	}

	opts := ParseOptions(req.Options)
	ledger := budget.NewLedger(opts.CostLimitUSD, o.deps.CostModel)
	report.Status = domain.ReviewStatusRunning

	em.state(StateStaticAnalysis)
	staticFindings := o.runStaticAnalysis(ctx, req.Files)

	em.state(StateRetrieval)
	contextDocs := o.retrieveContext(ctx, req.Files, opts.EnabledAgents())

	em.state(StateAgentsRunning)
	results := o.fanOut(ctx, req, opts, ledger, staticFindings, contextDocs, em)

	if ctx.Err() != nil {
		// Cancelled mid-flight: results from agents that finished before
		// the cancellation are still consolidated so the failed report
		// discloses what was done and what it cost.
		consolidated := o.deps.Consolidator.Consolidate(results)
		report.Status = domain.ReviewStatusFailed
		report.ExecutiveSummary = consolidated.Summary
		report.Issues = consolidated.Issues
		report.OverallScore = consolidated.Score
		report.Recommendation = consolidated.Recommendation
		report.CompletedAt = time.Now()
		report.Statistics = buildStatistics(req.Files, results, consolidated, ledger, report.CompletedAt.Sub(start))
		em.state(StateFailed)
		return report, &FaultError{Message: "review cancelled: " + ctx.Err().Error()}
	}

	em.state(StateConsolidating)
	budgetExceeded := allSkippedForBudget(results)

	var allStatic []domain.Finding
	for _, findings := range staticFindings {
		allStatic = append(allStatic, findings...)
	}
	merged := make(map[string]domain.AgentResult, len(results)+1)
	for key, result := range results {
		merged[key] = result
	}
	if len(allStatic) > 0 {
		merged["static"] = domain.AgentResult{
			AgentName: "static",
			Findings:  allStatic,
			Status:    domain.AgentStatusSucceeded,
		}
	}
	consolidated := o.deps.Consolidator.Consolidate(merged)

	report.ExecutiveSummary = consolidated.Summary
	report.Issues = consolidated.Issues
	report.OverallScore = consolidated.Score
	report.Recommendation = consolidated.Recommendation
	report.CompletedAt = time.Now()
	report.Statistics = buildStatistics(req.Files, results, consolidated, ledger, report.CompletedAt.Sub(start))

	if budgetExceeded {
		report.Status = domain.ReviewStatusBudgetExceeded
	} else {
		report.Status = domain.ReviewStatusCompleted
	}

	o.save(ctx, report)
	if opts.PostComments && o.deps.Poster != nil {
		if err := o.deps.Poster.Post(ctx, report); err != nil {
			o.logWarning(ctx, "failed to post review comments", map[string]interface{}{
				"review_id": report.ReviewID,
				"error":     err.Error(),
			})
		}
	}

	if budgetExceeded {
		em.state(StateBudgetExceeded)
	} else {
		em.state(StateCompleted)
	}
	return report, nil
}

// runStaticAnalysis collects deterministic findings per file. Analyzer
// failure degrades that file to zero findings.
func (o *Orchestrator) runStaticAnalysis(ctx context.Context, files []domain.CodeFile) map[string][]domain.Finding {
	findings := make(map[string][]domain.Finding, len(files))
	if o.deps.Analyzer == nil {
		return findings
	}
	for _, file := range files {
		found, err := o.deps.Analyzer.Analyze(ctx, file)
		if err != nil {
			o.logWarning(ctx, "static analysis failed, continuing without it", map[string]interface{}{
				"file":  file.Path,
				"error": err.Error(),
			})
			continue
		}
		findings[file.Path] = found
	}
	return findings
}

// retrieveContext fetches guidance once per distinct (language, aspect)
// pair, keyed "language|aspect". Retrieval failure degrades to no context.
func (o *Orchestrator) retrieveContext(ctx context.Context, files []domain.CodeFile, agents []string) map[string][]string {
	docs := make(map[string][]string)
	if o.deps.Knowledge == nil {
		return docs
	}
	for _, file := range files {
		for _, agentName := range agents {
			aspect := agent.KnowledgeAspect(agentName)
			key := file.Language + "|" + aspect
			if _, done := docs[key]; done {
				continue
			}
			retrieved, err := o.deps.Knowledge.Retrieve(ctx, file.Language, aspect, o.config.RetrievalK)
			if err != nil {
				o.logWarning(ctx, "knowledge retrieval failed, continuing without context", map[string]interface{}{
					"language": file.Language,
					"aspect":   aspect,
					"error":    err.Error(),
				})
				retrieved = nil
			}
			docs[key] = retrieved
		}
	}
	return docs
}

// fanOut dispatches one runner invocation per (agent, file), bounded by
// the worker limit, and joins them all before returning. Each completed
// invocation is emitted as a progress event.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	req Request,
	opts Options,
	ledger *budget.Ledger,
	staticFindings map[string][]domain.Finding,
	contextDocs map[string][]string,
	em *emitter,
) map[string]domain.AgentResult {
	sem := make(chan struct{}, o.config.MaxWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]domain.AgentResult)

	for _, agentName := range opts.EnabledAgents() {
		for _, file := range req.Files {
			wg.Add(1)
			go func(agentName string, file domain.CodeFile) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				result := o.deps.Runner.Run(ctx, agent.RunRequest{
					AgentName:           agentName,
					File:                file,
					ContextDocs:         contextDocs[file.Language+"|"+agent.KnowledgeAspect(agentName)],
					StaticFindings:      staticFindings[file.Path],
					Ledger:              ledger,
					ConfidenceThreshold: opts.ConfidenceThreshold,
					Reflect:             o.config.EnableReflection,
					Seed:                determinism.GenerateSeed(req.ReviewID, agentName),
				})

				mu.Lock()
				results[agentName+"/"+file.Path] = result
				mu.Unlock()
				em.result(result)
			}(agentName, file)
		}
	}
	wg.Wait()
	return results
}

// allSkippedForBudget reports whether the budget gate refused every single
// invocation, which makes the review terminal in budget_exceeded.
func allSkippedForBudget(results map[string]domain.AgentResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, result := range results {
		if result.Status != domain.AgentStatusSkippedBudget {
			return false
		}
	}
	return true
}

// buildStatistics assembles the report statistics from the consolidated
// issues, the raw agent results, and the ledger.
func buildStatistics(
	files []domain.CodeFile,
	results map[string]domain.AgentResult,
	consolidated consolidate.Consolidation,
	ledger *budget.Ledger,
	duration time.Duration,
) domain.Statistics {
	stats := domain.Statistics{
		TotalIssues:      len(consolidated.Issues),
		IssuesBySeverity: make(map[string]int),
		IssuesByCategory: make(map[string]int),
		FilesReviewed:    len(files),
		TotalTokens:      ledger.TotalTokens(),
		TotalCostUSD:     ledger.TotalCost(),
		Duration:         duration,
	}
	for _, issue := range consolidated.Issues {
		stats.IssuesBySeverity[issue.Severity]++
		stats.IssuesByCategory[issue.Category]++
	}
	for key, result := range results {
		switch result.Status {
		case domain.AgentStatusSucceeded:
			stats.AgentsSucceeded++
			stats.CacheMisses++
		case domain.AgentStatusFailed:
			stats.AgentsFailed++
			stats.CacheMisses++
			stats.FailedAgents = append(stats.FailedAgents, key)
		case domain.AgentStatusSkippedBudget:
			stats.AgentsSkipped++
		case domain.AgentStatusSkippedCacheHit:
			stats.AgentsSucceeded++
			stats.CacheHits++
		}
	}
	sort.Strings(stats.FailedAgents)
	if total := stats.CacheHits + stats.CacheMisses; total > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(total)
	}
	return stats
}

// save persists the report without blocking or failing the review. It runs
// detached from the caller's cancellation with its own timeout.
func (o *Orchestrator) save(ctx context.Context, report domain.ReviewReport) {
	if o.deps.Store == nil {
		return
	}
	go func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancel()
		if err := o.deps.Store.Save(saveCtx, report); err != nil {
			o.logWarning(saveCtx, "failed to persist review report", map[string]interface{}{
				"review_id": report.ReviewID,
				"error":     err.Error(),
			})
		}
	}()
}

func (o *Orchestrator) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogWarning(ctx, message, fields)
	}
}
