package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/xid"
	"golang.org/x/time/rate"

	"github.com/bkyoung/agent-reviewer/internal/adapter/analysis"
	memorycache "github.com/bkyoung/agent-reviewer/internal/adapter/cache/memory"
	rediscache "github.com/bkyoung/agent-reviewer/internal/adapter/cache/redis"
	"github.com/bkyoung/agent-reviewer/internal/adapter/cli"
	"github.com/bkyoung/agent-reviewer/internal/adapter/github"
	knowledgesqlite "github.com/bkyoung/agent-reviewer/internal/adapter/knowledge/sqlite"
	"github.com/bkyoung/agent-reviewer/internal/adapter/llm"
	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/anthropic"
	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/gateway"
	llmhttp "github.com/bkyoung/agent-reviewer/internal/adapter/llm/http"
	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/openai"
	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/static"
	"github.com/bkyoung/agent-reviewer/internal/adapter/observability"
	"github.com/bkyoung/agent-reviewer/internal/adapter/output/json"
	"github.com/bkyoung/agent-reviewer/internal/adapter/output/markdown"
	"github.com/bkyoung/agent-reviewer/internal/adapter/output/sarif"
	"github.com/bkyoung/agent-reviewer/internal/adapter/repository"
	storesqlite "github.com/bkyoung/agent-reviewer/internal/adapter/store/sqlite"
	"github.com/bkyoung/agent-reviewer/internal/config"
	"github.com/bkyoung/agent-reviewer/internal/redaction"
	"github.com/bkyoung/agent-reviewer/internal/usecase/agent"
	"github.com/bkyoung/agent-reviewer/internal/usecase/review"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "ar",
		EnvPrefix:   "AR",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	obs := buildObservability(cfg.Observability)

	var runnerLogger agent.Logger
	var reviewLogger review.Logger
	if obs.logger != nil {
		bridge := observability.NewPipelineLogger(obs.logger)
		runnerLogger = bridge
		reviewLogger = bridge
	}

	gw, err := buildGateway(cfg, obs)
	if err != nil {
		return err
	}

	cache, closeCache := buildCache(cfg.Cache)
	if closeCache != nil {
		defer closeCache()
	}

	var redactor agent.Redactor
	if cfg.Redaction.Enabled {
		engine, err := redaction.NewEngineWithPatterns(cfg.Redaction.Patterns)
		if err != nil {
			return fmt.Errorf("redaction patterns invalid: %w", err)
		}
		redactor = engine
	}

	runner, err := agent.NewRunner(agent.Deps{
		Gateway:   &gatewayCompleter{gateway: gw},
		Cache:     cache,
		Redactor:  redactor,
		Estimator: llm.EstimateTokens,
		Logger:    runnerLogger,
	}, agent.Config{
		MaxTokens: cfg.Agents.MaxTokens,
		CacheTTL:  parseDuration(cfg.Cache.TTL, 24*time.Hour),
	})
	if err != nil {
		return fmt.Errorf("runner setup failed: %w", err)
	}

	knowledge, closeKnowledge := buildKnowledge(cfg.Knowledge)
	if closeKnowledge != nil {
		defer closeKnowledge()
	}

	store, closeStore := buildStore(cfg.Store)
	if closeStore != nil {
		defer closeStore()
	}

	primary := cfg.Providers[cfg.Gateway.Primary]
	costModel := func(tokens int) float64 {
		return obs.pricing.EstimateInput(cfg.Gateway.Primary, primary.Model, tokens)
	}

	deps := review.Deps{
		Runner:    runner,
		Analyzer:  buildAnalyzer(cfg.Analysis),
		Logger:    reviewLogger,
		CostModel: costModel,
	}
	if knowledge != nil {
		deps.Knowledge = knowledge
	}
	if store != nil {
		deps.Store = store
	}
	if poster := buildPoster(cfg.GitHub); poster != nil {
		deps.Poster = poster
	}

	orchestrator, err := review.NewOrchestrator(deps, review.Config{
		MaxWorkers:       cfg.Agents.MaxWorkers,
		RetrievalK:       cfg.Knowledge.RetrievalK,
		EnableReflection: cfg.Agents.Reflection,
	})
	if err != nil {
		return fmt.Errorf("orchestrator setup failed: %w", err)
	}

	cliDeps := cli.Dependencies{
		Reviewer:  orchestrator,
		Collector: repository.NewCollector("."),
		Changes:   repository.NewGitCollector(repoDir(cfg.Git)),
		Writers: map[string]cli.ReportWriter{
			"json":     json.NewWriter(),
			"markdown": markdown.NewWriter(),
			"sarif":    sarif.NewWriter(),
		},
		Defaults: cli.ReviewDefaults{
			OutputDir:           cfg.Output.Directory,
			Formats:             cfg.Output.Formats,
			BaseRef:             cfg.Git.BaseRef,
			Progress:            review.IsOutputTerminal(),
			ConfidenceThreshold: cfg.Agents.ConfidenceThreshold,
			CostLimitUSD:        cfg.Budget.CostLimitUSD,
			EnableSecurity:      cfg.Agents.EnableSecurity,
			EnablePerformance:   cfg.Agents.EnablePerformance,
			EnableDocumentation: cfg.Agents.EnableDocumentation,
		},
		NewID:   func() string { return xid.New().String() },
		Version: version,
	}
	if knowledge != nil {
		cliDeps.Knowledge = knowledge
	}
	if store != nil {
		cliDeps.History = store
	}

	root := cli.NewRootCommand(cliDeps)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// gatewayCompleter adapts the gateway to the agent runner's completion
// port.
type gatewayCompleter struct {
	gateway *gateway.Gateway
}

func (g *gatewayCompleter) Complete(ctx context.Context, req agent.CompletionRequest) (agent.Completion, error) {
	completion, err := g.gateway.Complete(ctx, gateway.Request{
		Prompt:    req.Prompt,
		System:    req.System,
		Seed:      req.Seed,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return agent.Completion{}, err
	}
	return agent.Completion{
		Text:      completion.Text,
		TokensIn:  completion.TokensIn,
		TokensOut: completion.TokensOut,
		CostUSD:   completion.CostUSD,
		Model:     completion.ModelUsed,
	}, nil
}

// observabilityComponents holds shared observability instances.
type observabilityComponents struct {
	logger  llmhttp.Logger
	metrics llmhttp.Metrics
	pricing llmhttp.Pricing
}

func buildObservability(cfg config.ObservabilityConfig) observabilityComponents {
	var logger llmhttp.Logger
	if cfg.Logging.Enabled {
		level := llmhttp.LogLevelInfo
		switch cfg.Logging.Level {
		case "debug":
			level = llmhttp.LogLevelDebug
		case "error":
			level = llmhttp.LogLevelError
		}
		format := llmhttp.LogFormatHuman
		if cfg.Logging.Format == "json" {
			format = llmhttp.LogFormatJSON
		}
		logger = llmhttp.NewDefaultLogger(level, format, cfg.Logging.RedactAPIKeys)
	}

	var metrics llmhttp.Metrics
	if cfg.Metrics.Enabled {
		metrics = llmhttp.NewDefaultMetrics()
	}

	return observabilityComponents{
		logger:  logger,
		metrics: metrics,
		pricing: llmhttp.NewDefaultPricing(),
	}
}

func buildGateway(cfg config.Config, obs observabilityComponents) (*gateway.Gateway, error) {
	primary, err := buildTransport(cfg.Gateway.Primary, cfg.Providers[cfg.Gateway.Primary], obs)
	if err != nil {
		return nil, err
	}

	var fallback gateway.Transport
	if cfg.Gateway.Fallback != "" {
		fallback, err = buildTransport(cfg.Gateway.Fallback, cfg.Providers[cfg.Gateway.Fallback], obs)
		if err != nil {
			return nil, err
		}
	}

	var limiter *rate.Limiter
	if cfg.Gateway.RequestsPerSecond > 0 {
		burst := cfg.Gateway.RequestBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Gateway.RequestsPerSecond), burst)
	}

	return gateway.New(gateway.Options{
		Primary:     primary,
		Fallback:    fallback,
		Retry:       retryConfig(cfg.HTTP),
		Pricing:     obs.pricing,
		Logger:      obs.logger,
		Metrics:     obs.metrics,
		RateLimiter: limiter,
		CallTimeout: parseDuration(cfg.Gateway.CallTimeout, 60*time.Second),
	})
}

func buildTransport(name string, cfg config.ProviderConfig, obs observabilityComponents) (gateway.Transport, error) {
	switch name {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider anthropic: missing API key (set ANTHROPIC_API_KEY)")
		}
		t := anthropic.NewTransport(cfg.APIKey, cfg.Model)
		if cfg.BaseURL != "" {
			t.SetBaseURL(cfg.BaseURL)
		}
		if obs.logger != nil {
			t.SetLogger(obs.logger)
		}
		return t, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider openai: missing API key (set OPENAI_API_KEY)")
		}
		t := openai.NewTransport(cfg.APIKey, cfg.Model)
		if cfg.BaseURL != "" {
			t.SetBaseURL(cfg.BaseURL)
		}
		return t, nil
	case "static":
		return static.NewTransport(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func retryConfig(cfg config.HTTPConfig) llmhttp.RetryConfig {
	retry := llmhttp.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	if d := parseDuration(cfg.InitialBackoff, 0); d > 0 {
		retry.InitialBackoff = d
	}
	if d := parseDuration(cfg.MaxBackoff, 0); d > 0 {
		retry.MaxBackoff = d
	}
	if cfg.BackoffMultiplier > 0 {
		retry.Multiplier = cfg.BackoffMultiplier
	}
	return retry
}

func buildCache(cfg config.CacheConfig) (agent.Cache, func()) {
	switch cfg.Backend {
	case "redis":
		cache := rediscache.NewCache(rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return cache, func() { _ = cache.Close() }
	case "memory", "":
		return memorycache.NewCache(), nil
	default:
		return nil, nil
	}
}

func buildAnalyzer(cfg config.AnalysisConfig) review.Analyzer {
	if len(cfg.Tools) == 0 {
		return nil
	}
	tools := make(map[string]analysis.Tool, len(cfg.Tools))
	for language, tool := range cfg.Tools {
		tools[language] = analysis.Tool{
			Command: tool.Command,
			Args:    tool.Args,
			Timeout: parseDuration(tool.Timeout, 0),
		}
	}
	return analysis.NewAnalyzer(tools)
}

func buildKnowledge(cfg config.KnowledgeConfig) (*knowledgesqlite.KnowledgeBase, func()) {
	if cfg.Path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		log.Printf("warning: knowledge base directory: %v", err)
		return nil, nil
	}
	kb, err := knowledgesqlite.NewKnowledgeBase(cfg.Path)
	if err != nil {
		log.Printf("warning: knowledge base unavailable: %v", err)
		return nil, nil
	}
	return kb, func() { _ = kb.Close() }
}

func buildStore(cfg config.StoreConfig) (*storesqlite.Store, func()) {
	if !cfg.Enabled || cfg.Path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		log.Printf("warning: store directory: %v", err)
		return nil, nil
	}
	store, err := storesqlite.NewStore(cfg.Path)
	if err != nil {
		log.Printf("warning: review store unavailable: %v", err)
		return nil, nil
	}
	return store, func() { _ = store.Close() }
}

func buildPoster(cfg config.GitHubConfig) *github.Poster {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" || cfg.Owner == "" || cfg.Repo == "" || cfg.PullNumber <= 0 {
		return nil
	}
	return github.NewPoster(token, cfg.Owner, cfg.Repo, cfg.PullNumber)
}

func repoDir(cfg config.GitConfig) string {
	if cfg.RepositoryDir == "" {
		return "."
	}
	return cfg.RepositoryDir
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ar"))
	}
	return paths
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
