package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/pkg/logger"
	"github.com/channel-agent/pkg/ratelimit"
)

// OpenAIClient talks to any OpenAI-compatible chat completion API,
// OpenRouter included
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	limiterName string
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewOpenAIClient creates a client. limiterName selects the rate limiter
// bucket the calls are charged to.
func NewOpenAIClient(cfg config.AIConfig, limiterName string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout: 90 * time.Second,
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		limiterName: limiterName,
		rateLimiter: limiter,
		log:         log.WithComponent("ai-" + limiterName),
	}
}

// Complete sends the prompt and returns the first choice
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.rateLimiter.Wait(ctx, c.limiterName); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	c.log.Debug().
		Str("model", c.model).
		Int("max_tokens", maxTokens).
		Float64("temperature", temperature).
		Msg("Sending chat completion request")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Chat completion error")
		return "", fmt.Errorf("%s API error: %w", c.limiterName, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s API returned no choices", c.limiterName)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s API returned an empty completion (finish reason %q)", c.limiterName, resp.Choices[0].FinishReason)
	}

	c.log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Received chat completion")

	return content, nil
}

// headerTransport adds the OpenRouter attribution headers
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer == "" && t.title == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
