package llm

import (
	"fmt"

	"content-eval/internal/config"
	"content-eval/internal/model"
)

// Price is USD per 1000 tokens.
type Price struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Pricing is keyed by provider then exact model name.
type Pricing map[model.Provider]map[string]Price

// Cost estimates the USD cost of a call. Unknown provider/model pairs cost zero.
func (p Pricing) Cost(provider model.Provider, modelName string, promptTokens, completionTokens int) float64 {
	price, ok := p[provider][modelName]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000.0*price.InputPer1K + float64(completionTokens)/1000.0*price.OutputPer1K
}

// ModelEntry is one configured provider/model pair.
type ModelEntry struct {
	Provider model.Provider
	Model    string
	Params   model.GenerationParams
}

// BuildTable flattens the provider config into model entries and a pricing table.
func BuildTable(providers []config.ProviderConfig) ([]ModelEntry, Pricing, error) {
	var entries []ModelEntry
	pricing := Pricing{}
	for _, pc := range providers {
		provider, err := model.ParseProvider(pc.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("providers: %w", err)
		}
		params := model.GenerationParams{
			Temperature: pc.Params.Temperature,
			MaxTokens:   pc.Params.MaxTokens,
		}
		for _, mc := range pc.Models {
			if mc.Name == "" {
				return nil, nil, fmt.Errorf("providers: %s has a model without a name", provider)
			}
			entries = append(entries, ModelEntry{Provider: provider, Model: mc.Name, Params: params})
			if pricing[provider] == nil {
				pricing[provider] = map[string]Price{}
			}
			pricing[provider][mc.Name] = Price{InputPer1K: mc.InputPer1K, OutputPer1K: mc.OutputPer1K}
		}
	}
	return entries, pricing, nil
}

// Lookup finds the configured entry for provider/model.
func Lookup(entries []ModelEntry, provider model.Provider, modelName string) (ModelEntry, bool) {
	for _, e := range entries {
		if e.Provider == provider && e.Model == modelName {
			return e, true
		}
	}
	return ModelEntry{}, false
}
