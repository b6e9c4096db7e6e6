// Package redaction strips secrets from prompt text before it is sent to
// any model provider. Placeholders are stable per secret so a value that
// appears twice redacts to the same token and prompts stay cacheable.
package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Engine performs regex-based secret detection and redaction. It satisfies
// the agent use case's Redactor port.
type Engine struct {
	patterns []*regexp.Regexp
}

// NewEngine creates an engine with the default secret patterns.
func NewEngine() *Engine {
	return &Engine{patterns: defaultPatterns()}
}

// NewEngineWithPatterns creates an engine that also scans user-supplied
// patterns, on top of the defaults. Invalid patterns are rejected.
func NewEngineWithPatterns(extra []string) (*Engine, error) {
	patterns := defaultPatterns()
	for _, raw := range extra {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", raw, err)
		}
		patterns = append(patterns, re)
	}
	return &Engine{patterns: patterns}, nil
}

// Redact replaces every detected secret with a stable placeholder derived
// from the secret's hash.
func (e *Engine) Redact(input string) (string, error) {
	result := input
	placeholders := make(map[string]string) // secret -> placeholder

	for _, pattern := range e.patterns {
		for _, match := range pattern.FindAllString(result, -1) {
			if _, seen := placeholders[match]; seen {
				continue
			}
			placeholders[match] = placeholder(match)
		}
	}

	for secret, token := range placeholders {
		result = strings.ReplaceAll(result, secret, token)
	}
	return result, nil
}

// IsRedacted reports whether the content contains redaction placeholders.
func (e *Engine) IsRedacted(content string) bool {
	return strings.Contains(content, "<REDACTED:")
}

func placeholder(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("<REDACTED:%s>", hex.EncodeToString(hash[:])[:8])
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Anthropic API keys (checked before the generic sk- form)
		`sk-ant-[a-zA-Z0-9\-]{20,}`,
		// OpenAI API keys
		`sk-[a-zA-Z0-9]{20,}`,
		// AWS access key IDs
		`AKIA[0-9A-Z]{16}`,
		// AWS secret access keys (high-entropy value next to an aws keyword)
		`aws.{0,20}?['\"][0-9a-zA-Z/+]{40}['\"]`,
		// GitHub tokens
		`gh[posr]_[a-zA-Z0-9]{20,}`,
		// Google API keys
		`AIza[0-9A-Za-z\-_]{35}`,
		// JWTs
		`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		// PEM private keys
		`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----`,
		// Slack tokens
		`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
		// Credentials embedded in connection URLs
		`[a-zA-Z][a-zA-Z0-9+.-]*://[^/\s:@]+:[^@\s]+@`,
		// Bearer tokens
		`Bearer\s+[a-zA-Z0-9_\-\.]+`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}
