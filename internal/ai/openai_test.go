package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/pkg/logger"
	"github.com/channel-agent/pkg/ratelimit"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

func newTestServer(t *testing.T, reply string, got *chatRequest, headers *http.Header) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		*headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   got.Model,
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": reply}}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClientComplete(t *testing.T) {
	var got chatRequest
	var headers http.Header
	srv := newTestServer(t, "Ciao dal modello", &got, &headers)

	c := NewOpenAIClient(config.AIConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/v1/",
		Model:       "test-model",
		MaxTokens:   300,
		Temperature: 0.8,
		Referer:     "https://example.com",
		Title:       "channel-agent",
	}, ratelimit.LimiterOpenRouter, ratelimit.NewDefaultLimiter(), logger.Nop())

	out, err := c.Complete(context.Background(), CompletionRequest{System: "sistema", User: "utente", MaxTokens: 123})
	require.NoError(t, err)
	assert.Equal(t, "Ciao dal modello", out)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "sistema", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "utente", got.Messages[1].Content)
	assert.Equal(t, 123, got.MaxTokens)
	assert.InDelta(t, 0.8, got.Temperature, 0.001)

	assert.Equal(t, "Bearer sk-test", headers.Get("Authorization"))
	assert.Equal(t, "https://example.com", headers.Get("HTTP-Referer"))
	assert.Equal(t, "channel-agent", headers.Get("X-Title"))
}

func TestOpenAIClientEmptyCompletion(t *testing.T) {
	var got chatRequest
	var headers http.Header
	srv := newTestServer(t, "   ", &got, &headers)

	c := NewOpenAIClient(config.AIConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"},
		ratelimit.LimiterOpenAI, ratelimit.NewDefaultLimiter(), logger.Nop())

	_, err := c.Complete(context.Background(), CompletionRequest{System: "s", User: "u"})
	assert.Error(t, err)
}

func TestNewCompleter(t *testing.T) {
	limiter := ratelimit.NewDefaultLimiter()

	c, err := NewCompleter(config.AIConfig{Provider: "openrouter", APIKey: "k", Model: "m"}, limiter, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewCompleter(config.AIConfig{Provider: "anthropic", APIKey: "k", Model: "m"}, limiter, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = NewCompleter(config.AIConfig{Provider: "gemini"}, limiter, logger.Nop())
	assert.Error(t, err)
}
