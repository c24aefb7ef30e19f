package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "d1:0", DocumentID: "d1", StartOffset: 0, Text: "The sky is blue.", Embedding: []float32{1, 0, 0}},
		{ID: "d2:0", DocumentID: "d2", StartOffset: 0, Text: "Grass is green.", Embedding: []float32{0, 1, 0}},
		{ID: "d3:0", DocumentID: "d3", StartOffset: 0, Text: "Water is wet.", Embedding: []float32{0, 0, 1}},
	}
}

func TestRebuildAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := New(t.TempDir())
	defer idx.Close()

	require.NoError(t, idx.Rebuild(ctx, 3, testChunks()))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "d1:0", results[0].Chunk.ID)
	assert.Equal(t, "The sky is blue.", results[0].Chunk.Text)
	assert.Equal(t, "d1", results[0].Chunk.DocumentID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryBeforeRebuild(t *testing.T) {
	idx := New(t.TempDir())
	defer idx.Close()

	_, err := idx.Query(context.Background(), []float32{1, 0, 0}, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestExistenceProbe(t *testing.T) {
	ctx := context.Background()
	idx := New(t.TempDir())
	defer idx.Close()

	_, err := idx.Query(ctx, nil, 0)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	require.NoError(t, idx.Rebuild(ctx, 3, testChunks()))
	results, err := idx.Query(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRebuildReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	idx := New(t.TempDir())
	defer idx.Close()

	require.NoError(t, idx.Rebuild(ctx, 3, testChunks()))

	replacement := []domain.Chunk{
		{ID: "new:0", DocumentID: "new", StartOffset: 0, Text: "Fresh corpus.", Embedding: []float32{1, 1, 1}},
	}
	require.NoError(t, idx.Rebuild(ctx, 3, replacement))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new:0", results[0].Chunk.ID)
}

func TestRebuildSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := New(dir)
	require.NoError(t, first.Rebuild(ctx, 3, testChunks()))
	require.NoError(t, first.Close())

	second := New(dir)
	defer second.Close()
	results, err := second.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d2:0", results[0].Chunk.ID)

	dim, err := second.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
}

func TestRebuildRejectsDimensionMismatch(t *testing.T) {
	idx := New(t.TempDir())
	defer idx.Close()

	chunks := []domain.Chunk{{ID: "c:0", DocumentID: "c", Embedding: []float32{1, 2}}}
	err := idx.Rebuild(context.Background(), 3, chunks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestQueryTieBreak(t *testing.T) {
	ctx := context.Background()
	idx := New(t.TempDir())
	defer idx.Close()

	same := []float32{1, 0, 0}
	chunks := []domain.Chunk{
		{ID: "b:0", DocumentID: "b", Text: "b", Embedding: same},
		{ID: "a:0", DocumentID: "a", Text: "a", Embedding: same},
	}
	require.NoError(t, idx.Rebuild(ctx, 3, chunks))

	results, err := idx.Query(ctx, same, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a:0", results[0].Chunk.ID)
	assert.Equal(t, "b:0", results[1].Chunk.ID)
}
