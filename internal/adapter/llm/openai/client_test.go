package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/gateway"
	llmhttp "github.com/bkyoung/agent-reviewer/internal/adapter/llm/http"
	"github.com/bkyoung/agent-reviewer/internal/adapter/llm/openai"
)

func newServer(t *testing.T, handler http.HandlerFunc) *openai.Transport {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	transport := openai.NewTransport("sk-test", "gpt-4o-mini")
	transport.SetBaseURL(server.URL)
	return transport
}

func TestTransport_Complete(t *testing.T) {
	transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.EqualValues(t, 42, body["seed"])

		messages := body["messages"].([]any)
		require.Len(t, messages, 2, "system plus user message")

		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "{\"findings\": []}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 90, "completion_tokens": 12}
		}`))
	})

	raw, err := transport.Complete(context.Background(), gateway.Request{
		Prompt: "review",
		System: "you are a reviewer",
		Seed:   42,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"findings": []}`, raw.Text)
	assert.Equal(t, 90, raw.TokensIn)
	assert.Equal(t, 12, raw.TokensOut)
}

func TestTransport_MapsErrorStatuses(t *testing.T) {
	transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"type": "server_error", "message": "overloaded"}}`))
	})

	_, err := transport.Complete(context.Background(), gateway.Request{Prompt: "p"})
	require.Error(t, err)

	var transportErr *llmhttp.Error
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, llmhttp.ErrTypeServiceUnavailable, transportErr.Type)
	assert.True(t, transportErr.IsRetryable())
}

func TestTransport_NoChoicesIsError(t *testing.T) {
	transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [], "usage": {"prompt_tokens": 1, "completion_tokens": 0}}`))
	})

	_, err := transport.Complete(context.Background(), gateway.Request{Prompt: "p"})
	assert.Error(t, err)
}
