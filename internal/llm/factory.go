package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
)

// NewClient creates a raw LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: %w", cfg.Provider, common.ErrInvalidConfig)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
