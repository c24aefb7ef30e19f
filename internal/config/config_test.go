package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Type)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.Size)
	require.NotNil(t, cfg.Chunking.Overlap)
	assert.Equal(t, DefaultChunkOverlap, *cfg.Chunking.Overlap)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
	assert.Equal(t, "sqlite", cfg.Index.Type)
	assert.Equal(t, "index_data", cfg.Index.Path)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadPartialConfigFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
embedding:
  type: hashing
chunking:
  size: 500
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hashing", cfg.Embedding.Type)
	assert.Equal(t, 256, cfg.Embedding.Dimension)
	assert.Equal(t, 500, cfg.Chunking.Size)
	require.NotNil(t, cfg.Chunking.Overlap)
	assert.Equal(t, DefaultChunkOverlap, *cfg.Chunking.Overlap)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
}

func TestLoadExplicitZeroOverlap(t *testing.T) {
	path := writeConfig(t, `
chunking:
  size: 100
  overlap: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Chunking.Overlap)
	assert.Equal(t, 0, *cfg.Chunking.Overlap)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "chunking: [not a mapping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown embedding type",
			yaml:    "embedding:\n  type: word2vec\n",
			wantErr: "embedding.type",
		},
		{
			name:    "overlap not below size",
			yaml:    "chunking:\n  size: 100\n  overlap: 100\n",
			wantErr: "chunking.overlap",
		},
		{
			name:    "negative overlap",
			yaml:    "chunking:\n  size: 100\n  overlap: -1\n",
			wantErr: "chunking.overlap",
		},
		{
			name:    "negative top_k",
			yaml:    "retrieval:\n  top_k: -2\n",
			wantErr: "retrieval.top_k",
		},
		{
			name:    "unknown index type",
			yaml:    "index:\n  type: faiss\n",
			wantErr: "index.type",
		},
		{
			name:    "qdrant without url",
			yaml:    "index:\n  type: qdrant\n",
			wantErr: "index.qdrant.url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadQdrantConfig(t *testing.T) {
	path := writeConfig(t, `
index:
  type: qdrant
  qdrant:
    url: http://localhost:6333
    collection: corpus
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Index.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.Index.Qdrant.URL)
	assert.Equal(t, "corpus", cfg.Index.Qdrant.Collection)
	assert.Equal(t, 15, cfg.Index.Qdrant.TimeoutSecs)
}
