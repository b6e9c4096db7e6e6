// Package anthropic implements the gateway Transport for the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/gateway"
	llmhttp "github.com/bkyoung/agent-reviewer/internal/adapter/llm/http"
)

const (
	providerName     = "anthropic"
	defaultBaseURL   = "https://api.anthropic.com"
	defaultTimeout   = 60 * time.Second
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096
)

// Transport is a single-attempt Anthropic client. Retry and fallback are
// the gateway's responsibility.
type Transport struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  llmhttp.Logger
}

// NewTransport creates an Anthropic transport bound to one model.
func NewTransport(apiKey, model string) *Transport {
	return &Transport{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL overrides the API endpoint (used by tests).
func (t *Transport) SetBaseURL(url string) {
	t.baseURL = strings.TrimSuffix(url, "/")
}

// SetLogger attaches a request/response logger.
func (t *Transport) SetLogger(logger llmhttp.Logger) {
	t.logger = logger
}

// Provider implements gateway.Transport.
func (t *Transport) Provider() string { return providerName }

// Model implements gateway.Transport.
func (t *Transport) Model() string { return t.model }

// Complete performs one Messages API call.
func (t *Transport) Complete(ctx context.Context, req gateway.Request) (gateway.Raw, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := messagesRequest{
		Model:     t.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages: []message{
			{Role: "user", Content: req.Prompt},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeInvalidRequest,
			Message:  fmt.Sprintf("marshal request: %v", err),
			Provider: providerName,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeInvalidRequest,
			Message:  err.Error(),
			Provider: providerName,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", t.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	if t.logger != nil {
		t.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    providerName,
			Model:       t.model,
			Timestamp:   time.Now(),
			PromptChars: len(req.Prompt),
			APIKey:      t.apiKey,
		})
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		// Connection failures and client timeouts are transient.
		return gateway.Raw{}, llmhttp.NewTimeoutError(providerName, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gateway.Raw{}, llmhttp.NewTimeoutError(providerName, fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode >= 400 {
		return gateway.Raw{}, llmhttp.FromStatus(providerName, resp.StatusCode, errorMessage(raw, resp.StatusCode))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeUnknown,
			Message:  fmt.Sprintf("parse response: %v", err),
			Provider: providerName,
		}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeUnknown,
			Message:  "no text content in response",
			Provider: providerName,
		}
	}

	return gateway.Raw{
		Text:      text.String(),
		TokensIn:  parsed.Usage.InputTokens,
		TokensOut: parsed.Usage.OutputTokens,
	}, nil
}

func errorMessage(body []byte, statusCode int) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}
