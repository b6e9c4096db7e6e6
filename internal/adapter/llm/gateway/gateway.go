// Package gateway provides the single-call LLM abstraction with
// primary/fallback model routing, bounded retry, and cost accounting.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	llmhttp "github.com/bkyoung/agent-reviewer/internal/adapter/llm/http"
)

// ErrUnavailable is returned once the primary transport is exhausted and
// the fallback (if any) has also failed. Callers mark the affected agent
// result as failed without aborting sibling agents.
var ErrUnavailable = errors.New("llm gateway: all transports unavailable")

// Transport is a single-attempt LLM call. Implementations return typed
// *llmhttp.Error values so the gateway can decide about retries.
type Transport interface {
	// Provider identifies the provider for pricing and logging.
	Provider() string

	// Model returns the model the transport is bound to.
	Model() string

	// Complete performs one completion attempt.
	Complete(ctx context.Context, req Request) (Raw, error)
}

// Request is the gateway's inbound payload.
type Request struct {
	Prompt    string
	System    string
	Seed      uint64
	MaxTokens int
}

// Raw is a transport-level completion before cost resolution.
type Raw struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Completion is the terminal result of one gateway call.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
	CostUSD   float64
	Provider  string
	ModelUsed string
}

// Tokens returns the combined token usage of the call.
func (c Completion) Tokens() int {
	return c.TokensIn + c.TokensOut
}

// Options configures a Gateway.
type Options struct {
	Primary     Transport
	Fallback    Transport // Optional second transport, tried once per call
	Retry       llmhttp.RetryConfig
	Pricing     llmhttp.Pricing
	Logger      llmhttp.Logger  // Optional
	Metrics     llmhttp.Metrics // Optional
	RateLimiter *rate.Limiter   // Optional, bounds call rate across agents
	CallTimeout time.Duration   // Per-call timeout, 0 disables
}

// Gateway routes completions to a primary transport with retry, falling
// back to a secondary transport once per call.
type Gateway struct {
	opts Options
}

// New constructs a Gateway. Primary is required.
func New(opts Options) (*Gateway, error) {
	if opts.Primary == nil {
		return nil, errors.New("gateway: primary transport is required")
	}
	if opts.Pricing == nil {
		opts.Pricing = llmhttp.NewDefaultPricing()
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = llmhttp.DefaultRetryConfig()
	}
	return &Gateway{opts: opts}, nil
}

// Complete performs one metered completion. Budget reservation is the
// caller's responsibility; the caller must record the returned usage in
// the cost ledger whether or not err is nil.
func (g *Gateway) Complete(ctx context.Context, req Request) (Completion, error) {
	transports := []Transport{g.opts.Primary}
	if g.opts.Fallback != nil {
		transports = append(transports, g.opts.Fallback)
	}

	var lastErr error
	for _, transport := range transports {
		completion, err := g.completeWith(ctx, transport, req)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		// Cancellation is terminal; trying the fallback would only
		// burn budget on a review that is already being torn down.
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
	}

	return Completion{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (g *Gateway) completeWith(ctx context.Context, transport Transport, req Request) (Completion, error) {
	if g.opts.RateLimiter != nil {
		if err := g.opts.RateLimiter.Wait(ctx); err != nil {
			return Completion{}, err
		}
	}

	start := time.Now()
	var raw Raw

	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		attemptCtx := ctx
		if g.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.opts.CallTimeout)
			defer cancel()
		}

		var attemptErr error
		raw, attemptErr = transport.Complete(attemptCtx, req)
		if attemptErr != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			// An individual call timeout is a transient failure.
			return llmhttp.NewTimeoutError(transport.Provider(), attemptErr.Error())
		}
		return attemptErr
	}, g.opts.Retry)

	duration := time.Since(start)

	if err != nil {
		if g.opts.Metrics != nil {
			g.opts.Metrics.RecordError(transport.Provider(), transport.Model())
		}
		if g.opts.Logger != nil {
			var retryable bool
			var transportErr *llmhttp.Error
			if errors.As(err, &transportErr) {
				retryable = transportErr.IsRetryable()
			}
			g.opts.Logger.LogError(ctx, llmhttp.ErrorLog{
				Provider:  transport.Provider(),
				Model:     transport.Model(),
				Timestamp: time.Now(),
				Duration:  duration,
				Error:     err,
				Retryable: retryable,
			})
		}
		return Completion{}, err
	}

	cost := g.opts.Pricing.Cost(transport.Provider(), transport.Model(), raw.TokensIn, raw.TokensOut)

	if g.opts.Metrics != nil {
		g.opts.Metrics.RecordCall(transport.Provider(), transport.Model(), raw.TokensIn, raw.TokensOut, cost, duration)
	}
	if g.opts.Logger != nil {
		g.opts.Logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:  transport.Provider(),
			Model:     transport.Model(),
			Timestamp: time.Now(),
			Duration:  duration,
			TokensIn:  raw.TokensIn,
			TokensOut: raw.TokensOut,
			Cost:      cost,
		})
	}

	return Completion{
		Text:      raw.Text,
		TokensIn:  raw.TokensIn,
		TokensOut: raw.TokensOut,
		CostUSD:   cost,
		Provider:  transport.Provider(),
		ModelUsed: transport.Model(),
	}, nil
}
