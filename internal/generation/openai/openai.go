// Package openai provides a chat-completions generation client.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragchat/internal/domain"
)

var _ domain.Generator = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

const systemPrompt = "You are a helpful assistant. Answer the question using only the provided context. If the context does not contain the answer, say you do not know."

// Config configures the generation client.
type Config struct {
	// APIKey is the provider API key (required).
	APIKey string
	// BaseURL can be changed for compatible local servers.
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Client calls the /chat/completions endpoint with a constructed prompt.
// Generation failures are not retried here: the orchestrator surfaces them as
// service errors rather than retrying silently.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new generation client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the generation model identifier.
func (c *Client) Model() string { return c.model }

// Generate produces an answer for the prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat", Transient: true, Err: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat", Transient: true, Err: fmt.Errorf("status %s", resp.Status)}
	}

	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != nil {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat", Err: errors.New(out.Error.Message)}
	}
	if resp.StatusCode >= 300 {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat", Err: fmt.Errorf("status %s", resp.Status)}
	}
	if len(out.Choices) == 0 {
		return "", &domain.ProviderError{Provider: "openai", Op: "chat", Err: errors.New("no completion returned")}
	}
	return out.Choices[0].Message.Content, nil
}
