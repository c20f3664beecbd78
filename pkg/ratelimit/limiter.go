package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages multiple rate limiters for different services
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
// requestsPerSecond: the rate limit (e.g., 10 means 10 requests per second)
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

// Has reports whether a limiter with the given name is registered
func (m *MultiLimiter) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.limiters[name]
	return ok
}

// Default rate limiter names
const (
	LimiterDiscord   = "discord"
	LimiterGemini    = "gemini"
	LimiterAnthropic = "anthropic"
	LimiterSteam     = "steam"
	LimiterRSS       = "rss"
)

// Limits configures the default limiter set. Zero values fall back to defaults.
type Limits struct {
	DiscordPerMinute   int
	GeminiPerMinute    int
	AnthropicPerMinute int
	SteamPerSecond     float64
}

// NewDefaultLimiter creates a limiter with default rate limits
func NewDefaultLimiter() *MultiLimiter {
	return New(Limits{})
}

// New creates the default limiter set with the given overrides
func New(l Limits) *MultiLimiter {
	if l.DiscordPerMinute <= 0 {
		l.DiscordPerMinute = 30
	}
	if l.GeminiPerMinute <= 0 {
		l.GeminiPerMinute = 10
	}
	if l.AnthropicPerMinute <= 0 {
		l.AnthropicPerMinute = 10
	}
	if l.SteamPerSecond <= 0 {
		l.SteamPerSecond = 4
	}

	m := NewMultiLimiter()

	// Discord webhooks: 30 messages per minute per webhook, burst 5
	m.AddLimiter(LimiterDiscord, float64(l.DiscordPerMinute)/60, 5)

	// Gemini free tier is ~10 requests per minute, burst 2
	m.AddLimiter(LimiterGemini, float64(l.GeminiPerMinute)/60, 2)

	// Anthropic: 10 requests per minute, burst 2
	m.AddLimiter(LimiterAnthropic, float64(l.AnthropicPerMinute)/60, 2)

	// Steam Web API: one owned-games call plus one achievements call per game
	m.AddLimiter(LimiterSteam, l.SteamPerSecond, 10)

	// RSS: No strict limit, but be polite - 1 per second, burst 10
	m.AddLimiter(LimiterRSS, 1, 10)

	return m
}
