package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content-eval/internal/config"
	"content-eval/internal/model"

	"go.uber.org/zap"
)

// Client routes requests to provider backends and never fails a generation:
// an unavailable backend yields the stub result instead.
type Client struct {
	backends map[model.Provider]Backend
	pricing  Pricing
	logger   *zap.Logger
}

func NewClient(backends map[model.Provider]Backend, pricing Pricing, logger *zap.Logger) *Client {
	if backends == nil {
		backends = map[model.Provider]Backend{}
	}
	return &Client{
		backends: backends,
		pricing:  pricing,
		logger:   logger,
	}
}

// NewClientFromConfig builds a backend for every provider that has an API key.
// Providers without a key run on the stub.
func NewClientFromConfig(ctx context.Context, providers []config.ProviderConfig, pricing Pricing, logger *zap.Logger) (*Client, error) {
	backends := map[model.Provider]Backend{}
	for _, pc := range providers {
		provider, err := model.ParseProvider(pc.Name)
		if err != nil {
			return nil, err
		}
		if pc.APIKey == "" {
			logger.Warn("Provider has no API key, using stub generation", zap.String("provider", string(provider)))
			continue
		}

		var backend Backend
		switch provider {
		case model.ProviderOpenAI:
			backend = NewOpenAIBackend(pc.APIKey, pc.BaseURL)
		case model.ProviderAnthropic:
			backend = NewAnthropicBackend(pc.APIKey, pc.BaseURL)
		case model.ProviderGoogle:
			backend, err = NewGoogleBackend(ctx, pc.APIKey)
		default:
			err = fmt.Errorf("unsupported provider %q", provider)
		}
		if err != nil {
			logger.Error("Failed to create provider backend, using stub generation",
				zap.String("provider", string(provider)),
				zap.Error(err))
			continue
		}

		backends[provider] = backend
		logger.Info("Provider backend initialized", zap.String("provider", string(provider)))
	}
	return NewClient(backends, pricing, logger), nil
}

func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	completion, err := c.complete(ctx, req)
	degraded := false
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("Generation degraded to stub",
			zap.String("provider", string(req.Provider)),
			zap.String("model", req.Model),
			zap.Error(err))
		completion = stubCompletion(req)
		degraded = true
	}

	return &Result{
		Content:          completion.Content,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		LatencyMS:        float64(time.Since(start).Microseconds()) / 1000.0,
		CostUSD:          c.pricing.Cost(req.Provider, req.Model, completion.PromptTokens, completion.CompletionTokens),
		Degraded:         degraded,
	}, nil
}

func (c *Client) complete(ctx context.Context, req Request) (*Completion, error) {
	backend, ok := c.backends[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: no backend for %s", ErrBackendUnavailable, req.Provider)
	}
	completion, err := backend.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if completion == nil {
		return nil, fmt.Errorf("%w: empty completion", ErrBackendUnavailable)
	}
	return completion, nil
}

// Close closes every backend, returning the joined errors.
func (c *Client) Close() error {
	var errs []error
	for provider, backend := range c.backends {
		if err := backend.Close(); err != nil {
			c.logger.Error("Failed to close provider backend",
				zap.String("provider", string(provider)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
