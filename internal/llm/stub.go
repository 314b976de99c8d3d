package llm

import (
	"fmt"
	"unicode/utf8"
)

const (
	stubPreviewRunes    = 80
	stubMaxPromptTokens = 512
	defaultMaxTokens    = 500
)

// StubPrefix starts every fallback content; stored rows are counted as degraded by it.
const StubPrefix = "[STUB:"

// StubMarker is the tag every fallback content starts with.
func StubMarker(req Request) string {
	return fmt.Sprintf("%s%s:%s]", StubPrefix, req.Provider, req.Model)
}

func stubCompletion(req Request) *Completion {
	preview := req.Prompt
	suffix := ""
	if utf8.RuneCountInString(preview) > stubPreviewRunes {
		preview = string([]rune(preview)[:stubPreviewRunes])
		suffix = "..."
	}
	content := StubMarker(req) + " Generated content for prompt (first 80 chars):\n" + preview + suffix

	maxTokens := req.Params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Completion{
		Content:          content,
		PromptTokens:     min(len(req.Prompt)/4, stubMaxPromptTokens),
		CompletionTokens: min(len(content)/4, maxTokens),
	}
}

// Fallback builds the deterministic offline result for req, priced like a real call.
func Fallback(req Request, pricing Pricing) *Result {
	c := stubCompletion(req)
	return &Result{
		Content:          c.Content,
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
		CostUSD:          pricing.Cost(req.Provider, req.Model, c.PromptTokens, c.CompletionTokens),
		Degraded:         true,
	}
}
