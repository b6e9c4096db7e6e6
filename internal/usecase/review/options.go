package review

import "github.com/bkyoung/agent-reviewer/internal/usecase/agent"

// Options are the per-review knobs callers pass as a loosely-typed map.
type Options struct {
	EnableSecurity      bool
	EnablePerformance   bool
	EnableDocumentation bool
	ConfidenceThreshold float64
	CostLimitUSD        float64
	PostComments        bool
}

// DefaultOptions returns the options used when the caller specifies
// nothing: all agents enabled, moderate confidence bar, no cost ceiling.
func DefaultOptions() Options {
	return Options{
		EnableSecurity:      true,
		EnablePerformance:   true,
		EnableDocumentation: true,
		ConfidenceThreshold: 0.7,
		CostLimitUSD:        0,
	}
}

// ParseOptions merges a raw options map onto the defaults. Unknown keys
// and values of the wrong type are ignored. Numeric values accept both
// int and float64 since decoded JSON and YAML differ on which they produce.
func ParseOptions(raw map[string]interface{}) Options {
	opts := DefaultOptions()
	for key, value := range raw {
		switch key {
		case "enable_security":
			if b, ok := value.(bool); ok {
				opts.EnableSecurity = b
			}
		case "enable_performance":
			if b, ok := value.(bool); ok {
				opts.EnablePerformance = b
			}
		case "enable_documentation":
			if b, ok := value.(bool); ok {
				opts.EnableDocumentation = b
			}
		case "confidence_threshold":
			if f, ok := toFloat(value); ok && f >= 0 && f <= 1 {
				opts.ConfidenceThreshold = f
			}
		case "cost_limit_usd":
			if f, ok := toFloat(value); ok && f >= 0 {
				opts.CostLimitUSD = f
			}
		case "post_comments":
			if b, ok := value.(bool); ok {
				opts.PostComments = b
			}
		}
	}
	return opts
}

// EnabledAgents lists the agents this review should run, in stable order.
// The analyzer always runs.
func (o Options) EnabledAgents() []string {
	agents := []string{agent.NameAnalyzer}
	if o.EnableSecurity {
		agents = append(agents, agent.NameSecurity)
	}
	if o.EnablePerformance {
		agents = append(agents, agent.NameOptimizer)
	}
	if o.EnableDocumentation {
		agents = append(agents, agent.NameDocumenter)
	}
	return agents
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
