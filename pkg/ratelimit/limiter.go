package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages one rate limiter per external service
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter for a service
// requestsPerSecond: the rate limit (e.g., 0.5 means one request every two seconds)
// burst: maximum burst size
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the limiter allows an event
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("limiter %s not found", name)
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (m *MultiLimiter) Allow(name string) bool {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	return limiter.Allow()
}

// Limiter names
const (
	LimiterOpenAI     = "openai"
	LimiterOpenRouter = "openrouter"
	LimiterAnthropic  = "anthropic"
	LimiterTelegram   = "telegram"
)

// Rates holds per-minute request budgets for each service
type Rates struct {
	CompletionsPerMinute int
	TelegramPerMinute    int
}

// New creates a limiter for every known service from per-minute budgets.
// Zero values fall back to the defaults used by NewDefaultLimiter.
func New(r Rates) *MultiLimiter {
	if r.CompletionsPerMinute <= 0 {
		r.CompletionsPerMinute = 20
	}
	if r.TelegramPerMinute <= 0 {
		r.TelegramPerMinute = 20
	}

	m := NewMultiLimiter()
	perSecond := float64(r.CompletionsPerMinute) / 60
	m.AddLimiter(LimiterOpenAI, perSecond, 1)
	m.AddLimiter(LimiterOpenRouter, perSecond, 1)
	m.AddLimiter(LimiterAnthropic, perSecond, 1)

	// Telegram allows ~20 messages per minute into the same channel
	m.AddLimiter(LimiterTelegram, float64(r.TelegramPerMinute)/60, 1)

	return m
}

// NewDefaultLimiter creates a limiter with default rate limits
func NewDefaultLimiter() *MultiLimiter {
	return New(Rates{})
}
