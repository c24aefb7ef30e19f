// Package qdrant implements the vector index against a Qdrant server using
// its REST API. One collection holds one corpus generation; Rebuild drops and
// recreates the collection so no half-written generation is ever queryable.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"ragchat/internal/domain"
)

var _ domain.Index = (*Index)(nil)

const upsertBatch = 256

// Config contains connection details for a Qdrant server.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Index is a minimal REST client to Qdrant, cosine distance.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// New creates a Qdrant-backed index handle.
func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Rebuild drops the collection, recreates it with the given dimension and
// uploads all chunks. Ingestion owns the collection exclusively while this
// runs; serving processes are never pointed at a collection mid-rebuild.
func (i *Index) Rebuild(ctx context.Context, dimension int, chunks []domain.Chunk) error {
	if dimension <= 0 {
		return errors.New("qdrant index: invalid dimension")
	}
	for _, c := range chunks {
		if len(c.Embedding) != dimension {
			return fmt.Errorf("qdrant index: chunk %s has embedding dimension %d, want %d", c.ID, len(c.Embedding), dimension)
		}
	}

	// Best-effort drop of the previous generation.
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", i.url, i.collection), nil)
	if err != nil {
		return err
	}
	i.auth(req)
	if resp, err := i.client.Do(req); err == nil {
		resp.Body.Close()
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := i.putJSON(ctx, fmt.Sprintf("%s/collections/%s", i.url, i.collection), create); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	for start := 0; start < len(chunks); start += upsertBatch {
		end := start + upsertBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		points := make([]map[string]any, 0, end-start)
		for n := start; n < end; n++ {
			c := chunks[n]
			points = append(points, map[string]any{
				"id":     n,
				"vector": c.Embedding,
				"payload": map[string]any{
					"chunk_id":     c.ID,
					"document_id":  c.DocumentID,
					"start_offset": c.StartOffset,
					"text":         c.Text,
				},
			})
		}
		body := map[string]any{"points": points}
		if err := i.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", i.url, i.collection), body); err != nil {
			return fmt.Errorf("upserting points: %w", err)
		}
	}
	return nil
}

// Query searches the collection. A missing collection maps to
// ErrIndexNotFound: ingestion has not been run against this server.
func (i *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		// Existence probe only.
		return nil, i.probe(ctx)
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	status, err := i.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", i.url, i.collection), req, &resp)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("collection %s: %w", i.collection, domain.ErrIndexNotFound)
	}
	if err != nil {
		return nil, err
	}

	results := make([]domain.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		c := domain.Chunk{}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			c.ID = v
		}
		if v, ok := r.Payload["document_id"].(string); ok {
			c.DocumentID = v
		}
		if v, ok := r.Payload["start_offset"].(float64); ok {
			c.StartOffset = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			c.Text = v
		}
		results = append(results, domain.RetrievalResult{Chunk: c, Score: r.Score})
	}
	// Qdrant orders by score; re-sort to pin the id tie-break.
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Chunk.ID < results[b].Chunk.ID
	})
	return results, nil
}

// Close is a no-op; the HTTP client holds no persistent connection state
// worth tearing down.
func (i *Index) Close() error { return nil }

// probe checks that the collection exists.
func (i *Index) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", i.url, i.collection), nil)
	if err != nil {
		return err
	}
	i.auth(req)
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("collection %s: %w", i.collection, domain.ErrIndexNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant GET collection failed: %s", resp.Status)
	}
	return nil
}

func (i *Index) auth(req *http.Request) {
	if i.apiKey != "" {
		req.Header.Set("api-key", i.apiKey)
	}
}

func (i *Index) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	i.auth(req)
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (i *Index) postJSON(ctx context.Context, url string, body any, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	i.auth(req)
	resp, err := i.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}
