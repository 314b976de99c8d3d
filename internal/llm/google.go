package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GoogleBackend struct {
	client *genai.Client
}

func NewGoogleBackend(ctx context.Context, apiKey string) (*GoogleBackend, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GoogleBackend{client: client}, nil
}

func (b *GoogleBackend) Complete(ctx context.Context, req Request) (*Completion, error) {
	m := b.client.GenerativeModel(req.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](float32(req.Params.Temperature)),
	}
	if req.Params.MaxTokens > 0 {
		m.GenerationConfig.MaxOutputTokens = genai.Ptr[int32](int32(req.Params.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := &Completion{Content: text.String()}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func (b *GoogleBackend) Close() error {
	return b.client.Close()
}
