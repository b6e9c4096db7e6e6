package config

import "fmt"

// Config represents the full application configuration.
type Config struct {
	Providers     map[string]ProviderConfig `yaml:"providers"`
	Gateway       GatewayConfig             `yaml:"gateway"`
	HTTP          HTTPConfig                `yaml:"http"`
	Agents        AgentsConfig              `yaml:"agents"`
	Budget        BudgetConfig              `yaml:"budget"`
	Cache         CacheConfig               `yaml:"cache"`
	Knowledge     KnowledgeConfig           `yaml:"knowledge"`
	Analysis      AnalysisConfig            `yaml:"analysis"`
	Redaction     RedactionConfig           `yaml:"redaction"`
	Store         StoreConfig               `yaml:"store"`
	Output        OutputConfig              `yaml:"output"`
	Git           GitConfig                 `yaml:"git"`
	GitHub        GitHubConfig              `yaml:"github"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL,omitempty"`
}

// GatewayConfig selects the primary and fallback providers and the call
// pacing applied to every completion.
type GatewayConfig struct {
	Primary           string  `yaml:"primary"`
	Fallback          string  `yaml:"fallback"`
	CallTimeout       string  `yaml:"callTimeout"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	RequestBurst      int     `yaml:"requestBurst"`
}

// HTTPConfig holds retry and backoff settings for provider calls.
type HTTPConfig struct {
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// AgentsConfig configures which agents run and how.
type AgentsConfig struct {
	EnableSecurity      bool    `yaml:"enableSecurity"`
	EnablePerformance   bool    `yaml:"enablePerformance"`
	EnableDocumentation bool    `yaml:"enableDocumentation"`
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"`
	Reflection          bool    `yaml:"reflection"`
	MaxWorkers          int     `yaml:"maxWorkers"`
	MaxTokens           int     `yaml:"maxTokens"`
}

// BudgetConfig caps spend per review.
type BudgetConfig struct {
	CostLimitUSD float64 `yaml:"costLimitUSD"`
}

// CacheConfig selects the agent result cache backend.
type CacheConfig struct {
	Backend string      `yaml:"backend"` // redis, memory, none
	TTL     string      `yaml:"ttl"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KnowledgeConfig configures the guidance document store.
type KnowledgeConfig struct {
	Path       string `yaml:"path"`
	DocsDir    string `yaml:"docsDir"`
	RetrievalK int    `yaml:"retrievalK"`
}

// AnalysisConfig maps languages to static analysis tools.
type AnalysisConfig struct {
	Tools map[string]ToolConfig `yaml:"tools"`
}

// ToolConfig is one external analyzer invocation. {file} in Args expands
// to the path of the file under review.
type ToolConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Timeout string   `yaml:"timeout"`
}

// RedactionConfig configures prompt secret scrubbing.
type RedactionConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

// StoreConfig configures review history persistence.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig configures report writing.
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	Formats   []string `yaml:"formats"` // json, markdown, sarif
}

// GitConfig configures changed-file collection.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
	BaseRef       string `yaml:"baseRef"`
}

// GitHubConfig configures posting consolidated reviews to a pull request.
// Posting is enabled only when all four fields are set.
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	PullNumber int    `yaml:"pullNumber"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured request/response logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`  // debug, info, error
	Format        string `yaml:"format"` // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"`
}

// MetricsConfig configures per-provider call metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Validate checks cross-field consistency: the gateway's primary provider
// must exist and be enabled, and the fallback, when set, must exist.
func (c Config) Validate() error {
	primary, ok := c.Providers[c.Gateway.Primary]
	if !ok {
		return fmt.Errorf("gateway primary %q is not a configured provider", c.Gateway.Primary)
	}
	if !primary.Enabled {
		return fmt.Errorf("gateway primary %q is disabled", c.Gateway.Primary)
	}
	if c.Gateway.Fallback != "" {
		if _, ok := c.Providers[c.Gateway.Fallback]; !ok {
			return fmt.Errorf("gateway fallback %q is not a configured provider", c.Gateway.Fallback)
		}
	}
	switch c.Cache.Backend {
	case "redis", "memory", "none", "":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache backend is redis but no redis addr is configured")
	}
	return nil
}
