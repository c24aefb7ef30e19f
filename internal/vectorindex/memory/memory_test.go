package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestQueryBeforeRebuild(t *testing.T) {
	_, err := New().Query(context.Background(), []float32{1}, 4)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestRebuildAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := New()
	chunks := []domain.Chunk{
		{ID: "a:0", DocumentID: "a", Text: "alpha", Embedding: []float32{1, 0}},
		{ID: "b:0", DocumentID: "b", Text: "beta", Embedding: []float32{0, 1}},
	}
	require.NoError(t, idx.Rebuild(ctx, 2, chunks))

	results, err := idx.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a:0", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRebuildReplaces(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.Rebuild(ctx, 1, []domain.Chunk{{ID: "old:0", Embedding: []float32{1}}}))
	require.NoError(t, idx.Rebuild(ctx, 1, []domain.Chunk{{ID: "new:0", Embedding: []float32{1}}}))

	results, err := idx.Query(ctx, []float32{1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new:0", results[0].Chunk.ID)
}

func TestRebuildIsolatesCallerSlice(t *testing.T) {
	ctx := context.Background()
	idx := New()
	chunks := []domain.Chunk{{ID: "a:0", Text: "original", Embedding: []float32{1}}}
	require.NoError(t, idx.Rebuild(ctx, 1, chunks))

	chunks[0].Text = "mutated"
	results, err := idx.Query(ctx, []float32{1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "original", results[0].Chunk.Text)
}

func TestRebuildRejectsDimensionMismatch(t *testing.T) {
	idx := New()
	err := idx.Rebuild(context.Background(), 3, []domain.Chunk{{ID: "a:0", Embedding: []float32{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}
