package ai

import (
	"context"
	"fmt"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/pkg/logger"
	"github.com/channel-agent/pkg/ratelimit"
)

// CompletionRequest is a single system + user prompt exchange
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer returns one text completion for a prompt
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// OpenRouterBaseURL is the OpenAI-compatible endpoint of the OpenRouter gateway
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewCompleter builds the client for the configured provider
func NewCompleter(cfg config.AIConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) (Completer, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg, ratelimit.LimiterOpenAI, limiter, log), nil
	case "openrouter":
		if cfg.BaseURL == "" {
			cfg.BaseURL = OpenRouterBaseURL
		}
		return NewOpenAIClient(cfg, ratelimit.LimiterOpenRouter, limiter, log), nil
	case "anthropic":
		return NewAnthropicClient(cfg, limiter, log), nil
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", cfg.Provider)
	}
}
