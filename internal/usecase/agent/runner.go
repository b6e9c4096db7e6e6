package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/bkyoung/agent-reviewer/internal/domain"
)

const (
	defaultMaxTokens = 4096
	defaultCacheTTL  = 24 * time.Hour
)

// Config holds runner settings that apply to every run.
type Config struct {
	MaxTokens int           // completion token ceiling per call
	CacheTTL  time.Duration // lifetime of memoized results
}

// Deps wires the runner's outbound ports. Gateway is required; the rest
// are optional and degrade gracefully when absent.
type Deps struct {
	Gateway   Gateway
	Cache     Cache
	Redactor  Redactor
	Estimator TokenEstimator
	Logger    Logger
}

// RunRequest describes one (agent, file) execution.
type RunRequest struct {
	AgentName           string
	File                domain.CodeFile
	ContextDocs         []string
	StaticFindings      []domain.Finding
	Ledger              Ledger
	ConfidenceThreshold float64
	Reflect             bool
	Seed                uint64
}

// Runner executes a single specialized agent against a single file.
type Runner struct {
	deps    Deps
	config  Config
	prompts *PromptBuilder
}

// NewRunner creates a runner. Returns an error when required dependencies
// are missing.
func NewRunner(deps Deps, config Config) (*Runner, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if deps.Estimator == nil {
		deps.Estimator = func(text string) int { return len(text) / 4 }
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaultCacheTTL
	}
	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}
	return &Runner{deps: deps, config: config, prompts: prompts}, nil
}

// Run executes the agent pipeline: cache lookup, prompt construction,
// budget-gated gateway call, structured-output parsing with one strict
// retry, optional self-reflection, and confidence filtering. It always
// returns a terminal AgentResult; failures are reported in the result,
// never as a panic or a lost entry.
func (r *Runner) Run(ctx context.Context, req RunRequest) domain.AgentResult {
	start := time.Now()
	result := domain.AgentResult{
		AgentName: req.AgentName,
		FilePath:  req.File.Path,
	}

	key := CacheKey(req.File.Path, req.File.ContentHash, req.AgentName, PromptVersion)
	if cached, ok := r.cacheGet(ctx, key); ok {
		cached.Status = domain.AgentStatusSkippedCacheHit
		cached.TokensUsed = 0
		cached.CostUSD = 0
		cached.Duration = time.Since(start)
		return cached
	}

	prompt, err := r.buildPrompt(req)
	if err != nil {
		return r.failed(result, start, err)
	}
	system := SystemPrompt(req.AgentName)

	// Reserve covers the prompt plus completion headroom. Fails closed:
	// a refused reservation means this agent never calls the model.
	estimate := r.deps.Estimator(system+prompt) + r.config.MaxTokens
	if !req.Ledger.Reserve(estimate) {
		result.Status = domain.AgentStatusSkippedBudget
		result.Duration = time.Since(start)
		r.logInfo(ctx, "agent skipped: budget exhausted", map[string]interface{}{
			"agent": req.AgentName,
			"file":  req.File.Path,
		})
		return result
	}

	completion, err := r.complete(ctx, req, system, prompt)
	result.TokensUsed += completion.Tokens()
	result.CostUSD += completion.CostUSD
	if err != nil {
		return r.failed(result, start, err)
	}

	parsed, perr := ParseResponse(completion.Text, req.AgentName, req.File.Path)
	if perr != nil {
		parsed, perr = r.retryStrict(ctx, req, system, prompt, &result)
		if perr != nil {
			return r.failed(result, start, perr)
		}
	}
	result.ReasoningTrace = parsed.Reasoning
	findings := parsed.Findings

	if req.Reflect && len(findings) > 0 {
		findings = r.reflect(ctx, req, findings, &result)
	}

	result.Findings = filterByConfidence(findings, req.ConfidenceThreshold)
	result.Status = domain.AgentStatusSucceeded
	result.Duration = time.Since(start)
	r.cachePut(ctx, key, result)
	return result
}

// retryStrict re-asks the model once with an explicit format instruction.
// The retry is a fresh metered call and must clear the budget gate again.
func (r *Runner) retryStrict(ctx context.Context, req RunRequest, system, prompt string, result *domain.AgentResult) (ParsedResponse, error) {
	estimate := r.deps.Estimator(system+prompt) + r.config.MaxTokens
	if !req.Ledger.Reserve(estimate) {
		return ParsedResponse{}, fmt.Errorf("structured output invalid and budget exhausted before retry")
	}
	r.logWarning(ctx, "agent response unparseable, retrying with strict format", map[string]interface{}{
		"agent": req.AgentName,
		"file":  req.File.Path,
	})

	completion, err := r.complete(ctx, req, system, prompt+strictFormatInstruction)
	result.TokensUsed += completion.Tokens()
	result.CostUSD += completion.CostUSD
	if err != nil {
		return ParsedResponse{}, err
	}
	return ParseResponse(completion.Text, req.AgentName, req.File.Path)
}

// reflect runs the self-reflection pass. It is budget-gated independently
// and advisory: any failure keeps the original findings.
func (r *Runner) reflect(ctx context.Context, req RunRequest, findings []domain.Finding, result *domain.AgentResult) []domain.Finding {
	prompt := buildReflectionPrompt(req.File, findings)
	estimate := r.deps.Estimator(reflectionSystemPrompt+prompt) + r.config.MaxTokens
	if !req.Ledger.Reserve(estimate) {
		r.logInfo(ctx, "reflection skipped: budget exhausted", map[string]interface{}{
			"agent": req.AgentName,
			"file":  req.File.Path,
		})
		return findings
	}

	completion, err := r.deps.Gateway.Complete(ctx, CompletionRequest{
		Prompt:    prompt,
		System:    reflectionSystemPrompt,
		Seed:      req.Seed,
		MaxTokens: r.config.MaxTokens,
	})
	result.TokensUsed += completion.Tokens()
	result.CostUSD += completion.CostUSD
	req.Ledger.Record(completion.Tokens(), completion.CostUSD)
	if err != nil {
		r.logWarning(ctx, "reflection call failed, keeping original findings", map[string]interface{}{
			"agent": req.AgentName,
			"file":  req.File.Path,
			"error": err.Error(),
		})
		return findings
	}

	verdict, err := parseReflection(completion.Text)
	if err != nil {
		r.logWarning(ctx, "reflection response unparseable, keeping original findings", map[string]interface{}{
			"agent": req.AgentName,
			"file":  req.File.Path,
		})
		return findings
	}
	return applyReflection(findings, verdict)
}

// complete performs one metered gateway call and records actual usage,
// including usage from failed calls.
func (r *Runner) complete(ctx context.Context, req RunRequest, system, prompt string) (Completion, error) {
	completion, err := r.deps.Gateway.Complete(ctx, CompletionRequest{
		Prompt:    prompt,
		System:    system,
		Seed:      req.Seed,
		MaxTokens: r.config.MaxTokens,
	})
	req.Ledger.Record(completion.Tokens(), completion.CostUSD)
	return completion, err
}

// buildPrompt renders the user prompt and redacts it. Redaction failure
// fails the run: prompt text must never leave the process unscrubbed.
func (r *Runner) buildPrompt(req RunRequest) (string, error) {
	prompt, err := r.prompts.Build(req.File, req.ContextDocs, req.StaticFindings)
	if err != nil {
		return "", err
	}
	if r.deps.Redactor != nil {
		redacted, err := r.deps.Redactor.Redact(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to redact prompt: %w", err)
		}
		prompt = redacted
	}
	return prompt, nil
}

func (r *Runner) failed(result domain.AgentResult, start time.Time, err error) domain.AgentResult {
	result.Status = domain.AgentStatusFailed
	result.Error = err.Error()
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) cacheGet(ctx context.Context, key string) (domain.AgentResult, bool) {
	if r.deps.Cache == nil {
		return domain.AgentResult{}, false
	}
	cached, ok, err := r.deps.Cache.Get(ctx, key)
	if err != nil {
		r.logWarning(ctx, "cache lookup failed, treating as miss", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return domain.AgentResult{}, false
	}
	return cached, ok
}

func (r *Runner) cachePut(ctx context.Context, key string, result domain.AgentResult) {
	if r.deps.Cache == nil {
		return
	}
	if err := r.deps.Cache.Put(ctx, key, result, r.config.CacheTTL); err != nil {
		r.logWarning(ctx, "cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (r *Runner) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if r.deps.Logger != nil {
		r.deps.Logger.LogInfo(ctx, message, fields)
	}
}

func (r *Runner) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if r.deps.Logger != nil {
		r.deps.Logger.LogWarning(ctx, message, fields)
	}
}
