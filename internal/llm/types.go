// Package llm is the generation backend used by the experiment pipeline.
// A Client turns (provider, model, prompt, params) into generated text plus
// usage metadata, and degrades to a deterministic stub when a backend is
// missing or fails.
package llm

import (
	"context"
	"errors"

	"content-eval/internal/model"
)

// ErrBackendUnavailable marks a generation that could not reach its backend.
var ErrBackendUnavailable = errors.New("generation backend unavailable")

type Request struct {
	Provider model.Provider
	Model    string
	Prompt   string
	Params   model.GenerationParams
}

type Result struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        float64
	CostUSD          float64
	// Degraded is true when Content came from the offline stub.
	Degraded bool
}

// Generator produces content for a single request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Completion is what a Backend returns before latency and cost accounting.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Backend talks to one provider's API.
type Backend interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Close() error
}
