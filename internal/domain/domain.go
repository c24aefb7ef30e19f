package domain

import "context"

// Document is a single normalized record loaded from the corpus.
// Identity is the (Source, ID) pair, unique within one corpus.
// Documents are discarded after chunking and never persisted themselves.
type Document struct {
	ID       string
	Source   string
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded, overlapping window of a document's text, the unit of
// embedding and retrieval. The ID is deterministic: it is derived from the
// parent document identity and StartOffset, so re-running ingestion with
// unchanged input reproduces identical ids.
type Chunk struct {
	ID          string
	DocumentID  string
	Text        string
	StartOffset int
	Embedding   []float32
}

// RetrievalResult is a matching chunk with its cosine similarity score.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
}

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	// EmbedBatch embeds many texts, preserving order. Large inputs are split
	// into provider-sized batches by the implementation.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Embed is the single-text convenience form used for queries.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the vector size produced by the configured model.
	Dimension() int
	// Model identifies the embedding model.
	Model() string
}

// Generator produces text from a prompt via a hosted generation model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chunker splits documents into retrieval-sized chunks.
type Chunker interface {
	Chunk(doc Document) []Chunk
}

// Index is a persistent store of embedded chunks for one corpus generation.
// Rebuild atomically replaces the whole index; there is no incremental merge.
type Index interface {
	Rebuild(ctx context.Context, dimension int, chunks []Chunk) error
	// Query returns the top-k results by cosine similarity, descending,
	// ties broken by chunk id ascending. Returns ErrIndexNotFound if no
	// index has ever been persisted at the configured location.
	Query(ctx context.Context, vector []float32, k int) ([]RetrievalResult, error)
	Close() error
}
