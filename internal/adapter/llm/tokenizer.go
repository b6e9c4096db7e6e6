// Package llm provides shared helpers for the LLM adapters.
package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	defaultEncoder *tiktoken.Tiktoken
	encoderOnce    sync.Once
	encoderErr     error
)

// getEncoder returns the shared tiktoken encoder, initializing it lazily.
func getEncoder() (*tiktoken.Tiktoken, error) {
	encoderOnce.Do(func() {
		defaultEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return defaultEncoder, encoderErr
}

// EstimateTokens returns an estimated token count for the given text using
// the cl100k_base encoding. Budget reservation uses this before a call, so
// the estimate only needs to be in the right ballpark across providers.
func EstimateTokens(text string) int {
	enc, err := getEncoder()
	if err != nil {
		// Character-based fallback when the encoding fails to load.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
