package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"content-eval/internal/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicBackend_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var body struct {
			Model       string   `json:"model"`
			MaxTokens   int      `json:"max_tokens"`
			Temperature *float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-opus-20240229", body.Model)
		assert.Equal(t, 500, body.MaxTokens)
		if assert.NotNil(t, body.Temperature) {
			assert.Equal(t, 0.0, *body.Temperature)
		}
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		require.Len(t, body.Messages[0].Content, 1)
		assert.Equal(t, "write", body.Messages[0].Content[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-opus-20240229",
			"content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "world"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 34}
		}`))
	}))
	defer srv.Close()

	backend := NewAnthropicBackend("key", srv.URL)
	out, err := backend.Complete(context.Background(), Request{
		Provider: model.ProviderAnthropic,
		Model:    "claude-3-opus-20240229",
		Prompt:   "write",
		Params:   model.GenerationParams{Temperature: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out.Content)
	assert.Equal(t, 12, out.PromptTokens)
	assert.Equal(t, 34, out.CompletionTokens)
}

func TestAnthropicBackend_ErrorStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicBackend("key", srv.URL).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)

	var apiErr *anthropic.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	// 不重试，失败交给 Client 降级
	assert.EqualValues(t, 1, hits.Load())
}

func TestOpenAIBackend_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4-turbo-preview",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Generated intro"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 21, "completion_tokens": 9, "total_tokens": 30}
		}`))
	}))
	defer srv.Close()

	backend := NewOpenAIBackend("key", srv.URL+"/v1")
	out, err := backend.Complete(context.Background(), Request{
		Provider: model.ProviderOpenAI,
		Model:    "gpt-4-turbo-preview",
		Prompt:   "write",
		Params:   model.GenerationParams{Temperature: 0.7, MaxTokens: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, "Generated intro", out.Content)
	assert.Equal(t, 21, out.PromptTokens)
	assert.Equal(t, 9, out.CompletionTokens)
}
