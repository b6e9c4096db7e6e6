package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment
// variables. Environment variables use the AR_ prefix with dots replaced
// by underscores (AR_BUDGET_COSTLIMITUSD).
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "ar"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "AR"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return expandEnvVars(cfg), nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings,
// so secrets can live in the environment rather than the config file.
func expandEnvVars(cfg Config) Config {
	for name, provider := range cfg.Providers {
		provider.APIKey = expandEnvString(provider.APIKey)
		provider.Model = expandEnvString(provider.Model)
		provider.BaseURL = expandEnvString(provider.BaseURL)
		cfg.Providers[name] = provider
	}

	cfg.Cache.Redis.Addr = expandEnvString(cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = expandEnvString(cfg.Cache.Redis.Password)
	cfg.Knowledge.Path = expandEnvString(cfg.Knowledge.Path)
	cfg.Knowledge.DocsDir = expandEnvString(cfg.Knowledge.DocsDir)
	cfg.Store.Path = expandEnvString(cfg.Store.Path)
	cfg.Output.Directory = expandEnvString(cfg.Output.Directory)
	cfg.Git.RepositoryDir = expandEnvString(cfg.Git.RepositoryDir)
	cfg.GitHub.Token = expandEnvString(cfg.GitHub.Token)

	return cfg
}

var (
	bracedVarRegex = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	bareVarRegex   = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvString replaces ${VAR} or $VAR with environment variable values,
// leaving unset references untouched.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	s = bracedVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("providers.anthropic.enabled", false)
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("providers.anthropic.apiKey", "${ANTHROPIC_API_KEY}")
	v.SetDefault("providers.openai.enabled", false)
	v.SetDefault("providers.openai.model", "gpt-4o")
	v.SetDefault("providers.openai.apiKey", "${OPENAI_API_KEY}")
	v.SetDefault("providers.static.enabled", true)
	v.SetDefault("providers.static.model", "static-v1")

	// Gateway defaults
	v.SetDefault("gateway.primary", "static")
	v.SetDefault("gateway.fallback", "")
	v.SetDefault("gateway.callTimeout", "60s")
	v.SetDefault("gateway.requestsPerSecond", 2.0)
	v.SetDefault("gateway.requestBurst", 4)

	// HTTP retry defaults
	v.SetDefault("http.maxRetries", 3)
	v.SetDefault("http.initialBackoff", "2s")
	v.SetDefault("http.maxBackoff", "30s")
	v.SetDefault("http.backoffMultiplier", 2.0)

	// Agent defaults
	v.SetDefault("agents.enableSecurity", true)
	v.SetDefault("agents.enablePerformance", true)
	v.SetDefault("agents.enableDocumentation", true)
	v.SetDefault("agents.confidenceThreshold", 0.7)
	v.SetDefault("agents.reflection", true)
	v.SetDefault("agents.maxWorkers", 4)
	v.SetDefault("agents.maxTokens", 4096)

	// Budget defaults: zero means no cap
	v.SetDefault("budget.costLimitUSD", 0.0)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.db", 0)

	// Knowledge defaults
	v.SetDefault("knowledge.path", defaultDataPath("knowledge.db"))
	v.SetDefault("knowledge.retrievalK", 3)

	// Redaction defaults
	v.SetDefault("redaction.enabled", true)

	// Store defaults
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", defaultDataPath("reviews.db"))

	// Output defaults
	v.SetDefault("output.directory", "out")
	v.SetDefault("output.formats", []string{"markdown"})

	// Git defaults
	v.SetDefault("git.repositoryDir", ".")
	v.SetDefault("git.baseRef", "")

	// Observability defaults
	v.SetDefault("observability.logging.enabled", true)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "human")
	v.SetDefault("observability.logging.redactAPIKeys", true)
	v.SetDefault("observability.metrics.enabled", true)
}

func defaultDataPath(file string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./" + file
	}
	return filepath.Join(home, ".config", "ar", file)
}
