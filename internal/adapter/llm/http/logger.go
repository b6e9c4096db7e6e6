package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"time"
)

// Logger provides structured logging for LLM calls and review progress.
type Logger interface {
	// LogRequest logs an outgoing API request (API key redacted).
	LogRequest(ctx context.Context, req RequestLog)

	// LogResponse logs an API response with timing and token info.
	LogResponse(ctx context.Context, resp ResponseLog)

	// LogError logs an API error.
	LogError(ctx context.Context, err ErrorLog)

	// LogInfo logs an informational event with structured fields.
	LogInfo(ctx context.Context, message string, fields map[string]interface{})

	// LogWarning logs a warning with structured fields.
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// RequestLog contains request information for logging.
type RequestLog struct {
	Provider    string
	Model       string
	Timestamp   time.Time
	PromptChars int
	APIKey      string // Redacted to last 4 chars before emission
}

// ResponseLog contains response information for logging.
type ResponseLog struct {
	Provider  string
	Model     string
	Timestamp time.Time
	Duration  time.Duration
	TokensIn  int
	TokensOut int
	Cost      float64
}

// ErrorLog contains error information for logging.
type ErrorLog struct {
	Provider  string
	Model     string
	Timestamp time.Time
	Duration  time.Duration
	Error     error
	Retryable bool
}

// LogLevel defines logging verbosity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return LogLevelDebug
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ParseLogFormat maps a config string to a LogFormat, defaulting to human.
func ParseLogFormat(format string) LogFormat {
	if format == "json" {
		return LogFormatJSON
	}
	return LogFormatHuman
}

// DefaultLogger writes structured logs to the process logger.
type DefaultLogger struct {
	level      LogLevel
	format     LogFormat
	redactKeys bool
}

// NewDefaultLogger creates a logger with the specified config.
func NewDefaultLogger(level LogLevel, format LogFormat, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{level: level, format: format, redactKeys: redactKeys}
}

// LogRequest logs an API request at debug level.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}

	key := l.RedactAPIKey(req.APIKey)
	if l.format == LogFormatJSON {
		log.Printf(`{"level":"debug","type":"request","provider":"%s","model":"%s","timestamp":"%s","prompt_chars":%d,"api_key":"%s"}`,
			req.Provider, req.Model, req.Timestamp.Format(time.RFC3339), req.PromptChars, key)
	} else {
		log.Printf("[DEBUG] %s/%s: request sent (prompt=%d chars, key=%s)",
			req.Provider, req.Model, req.PromptChars, key)
	}
}

// LogResponse logs an API response at info level.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}

	if l.format == LogFormatJSON {
		log.Printf(`{"level":"info","type":"response","provider":"%s","model":"%s","timestamp":"%s","duration_ms":%d,"tokens_in":%d,"tokens_out":%d,"cost":%.6f}`,
			resp.Provider, resp.Model, resp.Timestamp.Format(time.RFC3339),
			resp.Duration.Milliseconds(), resp.TokensIn, resp.TokensOut, resp.Cost)
	} else {
		log.Printf("[INFO] %s/%s: response received (duration=%.1fs, tokens=%d/%d, cost=$%.4f)",
			resp.Provider, resp.Model, resp.Duration.Seconds(), resp.TokensIn, resp.TokensOut, resp.Cost)
	}
}

// LogError logs an API error.
func (l *DefaultLogger) LogError(ctx context.Context, errLog ErrorLog) {
	retryable := "non-retryable"
	if errLog.Retryable {
		retryable = "retryable"
	}

	if l.format == LogFormatJSON {
		log.Printf(`{"level":"error","type":"error","provider":"%s","model":"%s","timestamp":"%s","duration_ms":%d,"error":%q,"retryable":%t}`,
			errLog.Provider, errLog.Model, errLog.Timestamp.Format(time.RFC3339),
			errLog.Duration.Milliseconds(), errLog.Error.Error(), errLog.Retryable)
	} else {
		log.Printf("[ERROR] %s/%s: call failed (%s): %v",
			errLog.Provider, errLog.Model, retryable, errLog.Error)
	}
}

// LogInfo logs a structured informational event.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.logEvent("info", "[INFO]", message, fields)
}

// LogWarning logs a structured warning.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.logEvent("warning", "[WARN]", message, fields)
}

func (l *DefaultLogger) logEvent(level, prefix, message string, fields map[string]interface{}) {
	if l.format == LogFormatJSON {
		encoded, err := json.Marshal(fields)
		if err != nil {
			encoded = []byte("{}")
		}
		log.Printf(`{"level":"%s","message":%q,"fields":%s}`, level, message, encoded)
		return
	}
	if len(fields) == 0 {
		log.Printf("%s %s", prefix, message)
		return
	}
	log.Printf("%s %s %v", prefix, message, fields)
}

// RedactAPIKey shows only the last 4 characters of an API key.
func (l *DefaultLogger) RedactAPIKey(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}

// MaxLoggedResponseLength caps how much response text reaches the logs, so
// source code and secrets from reviewed files do not leak into aggregators.
const MaxLoggedResponseLength = 200

// TruncateForLogging trims a response string for safe logging.
func TruncateForLogging(response string) string {
	if len(response) <= MaxLoggedResponseLength {
		return response
	}
	return response[:MaxLoggedResponseLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(response))
}

var urlSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`key=[^&"\s]+`),
	regexp.MustCompile(`apiKey=[^&"\s]+`),
	regexp.MustCompile(`api_key=[^&"\s]+`),
	regexp.MustCompile(`token=[^&"\s]+`),
	regexp.MustCompile(`access_token=[^&"\s]+`),
}

// RedactURLSecrets strips API keys from URLs embedded in error messages
// before they are logged or printed.
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}
	for _, pattern := range urlSecretPatterns {
		text = pattern.ReplaceAllStringFunc(text, func(match string) string {
			for i := range match {
				if match[i] == '=' {
					return match[:i] + "=[REDACTED]"
				}
			}
			return match
		})
	}
	return text
}
