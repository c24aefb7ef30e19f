package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"scaled", []float32{2, 4}, []float32{1, 2}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRankOrdersByScore(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "far", Embedding: []float32{0, 1}},
		{ID: "near", Embedding: []float32{1, 0.1}},
		{ID: "exact", Embedding: []float32{1, 0}},
	}
	results := Rank(chunks, []float32{1, 0}, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "near", results[1].Chunk.ID)
}

func TestRankTieBreaksByID(t *testing.T) {
	same := []float32{1, 1}
	chunks := []domain.Chunk{
		{ID: "c", Embedding: same},
		{ID: "a", Embedding: same},
		{ID: "b", Embedding: same},
	}
	results := Rank(chunks, []float32{1, 1}, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "b", results[1].Chunk.ID)
	assert.Equal(t, "c", results[2].Chunk.ID)
}

func TestRankClampsK(t *testing.T) {
	chunks := []domain.Chunk{{ID: "only", Embedding: []float32{1}}}
	assert.Len(t, Rank(chunks, []float32{1}, 10), 1)
	assert.Empty(t, Rank(chunks, []float32{1}, 0))
	assert.Empty(t, Rank(nil, []float32{1}, 4))
}
