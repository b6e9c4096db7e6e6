// Package static provides a canned gateway Transport for tests and
// offline dry runs. It never calls the network and costs nothing.
package static

import (
	"context"
	"sync"

	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/gateway"
)

const providerName = "static"

// defaultResponse is a minimal valid structured review with no findings.
const defaultResponse = "Reasoning: no issues identified in this pass.\n```json\n{\"findings\": []}\n```"

// Transport replays scripted responses in order, repeating the last one
// once the script is exhausted.
type Transport struct {
	mu        sync.Mutex
	model     string
	responses []string
	calls     int
}

// NewTransport creates a static transport. With no scripted responses it
// always returns an empty findings document.
func NewTransport(model string, responses ...string) *Transport {
	if len(responses) == 0 {
		responses = []string{defaultResponse}
	}
	return &Transport{model: model, responses: responses}
}

// Provider implements gateway.Transport.
func (t *Transport) Provider() string { return providerName }

// Model implements gateway.Transport.
func (t *Transport) Model() string { return t.model }

// Calls returns how many completions have been served.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Complete returns the next scripted response.
func (t *Transport) Complete(ctx context.Context, req gateway.Request) (gateway.Raw, error) {
	if err := ctx.Err(); err != nil {
		return gateway.Raw{}, err
	}

	t.mu.Lock()
	index := t.calls
	if index >= len(t.responses) {
		index = len(t.responses) - 1
	}
	text := t.responses[index]
	t.calls++
	t.mu.Unlock()

	return gateway.Raw{
		Text:      text,
		TokensIn:  len(req.Prompt) / 4,
		TokensOut: len(text) / 4,
	}, nil
}
