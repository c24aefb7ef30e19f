// Package memory implements an in-process vector index using brute-force
// cosine similarity. Nothing survives a restart; it exists for tests and for
// setups where ingestion and serving run in one process.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ragchat/internal/domain"
	"ragchat/internal/vectorindex"
)

var _ domain.Index = (*Index)(nil)

// Index holds one corpus generation in memory.
type Index struct {
	mu        sync.RWMutex
	built     bool
	dimension int
	chunks    []domain.Chunk
}

// New creates an empty, unbuilt index.
func New() *Index { return &Index{} }

// Rebuild replaces the held generation wholesale.
func (i *Index) Rebuild(_ context.Context, dimension int, chunks []domain.Chunk) error {
	if dimension <= 0 {
		return errors.New("memory index: invalid dimension")
	}
	for _, c := range chunks {
		if len(c.Embedding) != dimension {
			return fmt.Errorf("memory index: chunk %s has embedding dimension %d, want %d", c.ID, len(c.Embedding), dimension)
		}
	}
	snapshot := make([]domain.Chunk, len(chunks))
	copy(snapshot, chunks)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.built = true
	i.dimension = dimension
	i.chunks = snapshot
	return nil
}

// Query returns the top-k results by cosine similarity. Returns
// ErrIndexNotFound before the first Rebuild.
func (i *Index) Query(_ context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if !i.built {
		return nil, domain.ErrIndexNotFound
	}
	return vectorindex.Rank(i.chunks, vector, k), nil
}

// Close is a no-op.
func (i *Index) Close() error { return nil }
