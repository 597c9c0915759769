package llm

import (
	"context"
	"time"
)

// Client sends a single prompt to a language model and returns its reply.
type Client interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// CompletionOptions tune one request. Zero values fall back to the client's
// configured defaults.
type CompletionOptions struct {
	System      string
	Temperature float64
	MaxTokens   int
}

// Config holds provider settings and the assistant's resilience knobs.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

func (cfg Config) temperature() float64 {
	if cfg.Temperature == 0 {
		return 0.7
	}
	return cfg.Temperature
}

func (cfg Config) maxTokens() int {
	if cfg.MaxTokens == 0 {
		return 1024
	}
	return cfg.MaxTokens
}

func pick[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
