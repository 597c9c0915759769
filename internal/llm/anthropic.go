package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// anthropicClient implements the Client interface for the Anthropic
// messages API.
type anthropicClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required: %w", common.ErrMissingConfig)
	}

	return &anthropicClient{
		baseURL:     strings.TrimRight(pick(cfg.BaseURL, anthropicBaseURL), "/"),
		apiKey:      cfg.APIKey,
		model:       pick(cfg.Model, "claude-3-5-haiku-latest"),
		temperature: cfg.temperature(),
		maxTokens:   cfg.maxTokens(),
		httpClient:  newHTTPClient(),
	}, nil
}

// Complete sends prompt as a single user message.
func (c *anthropicClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  pick(opts.MaxTokens, c.maxTokens),
		"temperature": pick(opts.Temperature, c.temperature),
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if opts.System != "" {
		requestBody["system"] = opts.System
	}

	body, err := postJSON(ctx, c.httpClient, c.baseURL+"/messages", requestBody, map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, "anthropic")
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return strings.TrimSpace(text.String()), nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
