// Package openai provides an OpenAI-compatible embeddings client.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"ragchat/internal/domain"
)

// Ensure Client implements the interface.
var _ domain.Embedder = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-large"
	DefaultTimeout    = 30 * time.Second
	DefaultBatchSize  = 64
	DefaultMaxRetries = 5
)

// Known dimensions for OpenAI embedding models. Unknown models have their
// dimension set lazily from the first response.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the embeddings client.
type Config struct {
	// APIKey is the provider API key (required).
	APIKey string
	// BaseURL can be changed for Azure OpenAI or compatible local servers.
	BaseURL string
	Model   string
	Timeout time.Duration
	// BatchSize bounds how many texts go into one provider request.
	BatchSize int
	// MaxRetries bounds retries of a transient failure before it becomes a
	// ProviderError.
	MaxRetries int
}

// Client embeds text via the /embeddings endpoint. Large jobs are split into
// BatchSize-sized requests; transient provider failures (rate limit, timeout,
// 5xx) are retried with exponential backoff up to MaxRetries.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	maxRetries int
	// dimension is written once, lazily, for models outside the built-in
	// table; concurrent requests may race the discovery.
	dimension atomic.Int32
	client    *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new embeddings client using the provided configuration.
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
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
	c.dimension.Store(int32(modelDimensions[cfg.Model]))
	return c, nil
}

// Model returns the embedding model identifier.
func (c *Client) Model() string { return c.model }

// Dimension returns the dimensionality of the produced vectors. Zero until
// known, for models outside the built-in table that have not embedded yet.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, &domain.ProviderError{Provider: "openai", Op: "embeddings", Err: errors.New("no embedding returned")}
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, preserving input order, splitting the job into
// provider-sized batches.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		vecs, retryAfter, err := c.embedOnce(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		var pe *domain.ProviderError
		if !errors.As(err, &pe) || !pe.Transient {
			return nil, err
		}
		lastErr = err
		if attempt == c.maxRetries {
			break
		}
		delay := retryDelay(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// embedOnce performs a single provider request. The returned duration is the
// server-requested Retry-After, when present.
func (c *Client) embedOnce(ctx context.Context, batch []string) ([][]float32, time.Duration, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: batch})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		// Network failures and client timeouts are transient.
		return nil, 0, &domain.ProviderError{Provider: "openai", Op: "embeddings", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, parseRetryAfter(resp), &domain.ProviderError{
			Provider:  "openai",
			Op:        "embeddings",
			Transient: true,
			Err:       fmt.Errorf("status %s", resp.Status),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &domain.ProviderError{Provider: "openai", Op: "embeddings", Transient: true, Err: err}
	}

	var out embedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, 0, &domain.ProviderError{Provider: "openai", Op: "embeddings", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != nil {
		return nil, 0, &domain.ProviderError{Provider: "openai", Op: "embeddings", Err: errors.New(out.Error.Message)}
	}
	if resp.StatusCode >= 300 {
		return nil, 0, &domain.ProviderError{Provider: "openai", Op: "embeddings", Err: fmt.Errorf("status %s", resp.Status)}
	}
	if len(out.Data) != len(batch) {
		return nil, 0, &domain.ProviderError{
			Provider: "openai",
			Op:       "embeddings",
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(out.Data), len(batch)),
		}
	}

	vecs := make([][]float32, len(batch))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, 0, &domain.ProviderError{Provider: "openai", Op: "embeddings", Err: fmt.Errorf("embedding index %d out of range", d.Index)}
		}
		vecs[d.Index] = d.Embedding
	}
	if len(vecs) > 0 {
		c.dimension.CompareAndSwap(0, int32(len(vecs[0])))
	}
	return vecs, 0, nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// retryDelay is an exponential backoff schedule capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
