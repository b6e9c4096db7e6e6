// Package openai implements the gateway Transport for the OpenAI chat
// completions API. It is typically wired as the fallback model.
package openai

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
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com"
	defaultTimeout = 60 * time.Second
)

// Transport is a single-attempt OpenAI client.
type Transport struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewTransport creates an OpenAI transport bound to one model.
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

// Provider implements gateway.Transport.
func (t *Transport) Provider() string { return providerName }

// Model implements gateway.Transport.
func (t *Transport) Model() string { return t.model }

// Complete performs one chat completions call.
func (t *Transport) Complete(ctx context.Context, req gateway.Request) (gateway.Raw, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:    t.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Seed > 0 {
		seed := int64(req.Seed)
		body.Seed = &seed
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeInvalidRequest,
			Message:  fmt.Sprintf("marshal request: %v", err),
			Provider: providerName,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeInvalidRequest,
			Message:  err.Error(),
			Provider: providerName,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
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

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeUnknown,
			Message:  fmt.Sprintf("parse response: %v", err),
			Provider: providerName,
		}
	}
	if len(parsed.Choices) == 0 {
		return gateway.Raw{}, &llmhttp.Error{
			Type:     llmhttp.ErrTypeUnknown,
			Message:  "no choices in response",
			Provider: providerName,
		}
	}

	return gateway.Raw{
		Text:      parsed.Choices[0].Message.Content,
		TokensIn:  parsed.Usage.PromptTokens,
		TokensOut: parsed.Usage.CompletionTokens,
	}, nil
}

func errorMessage(body []byte, statusCode int) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}
