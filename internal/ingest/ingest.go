// Package ingest runs the offline ingestion pass: load the corpus, chunk
// every document, embed the chunks and rebuild the vector index wholesale.
// Any error aborts the whole run; the previously persisted index generation
// stays untouched until the final rebuild swap.
package ingest

import (
	"context"
	"fmt"

	"ragchat/internal/domain"
	"ragchat/internal/loader"
	"ragchat/internal/logger"
	"ragchat/internal/summarizer"
)

// digestSentences bounds the corpus digest in the report.
const digestSentences = 3

// Pipeline wires the ingestion components.
type Pipeline struct {
	Chunker  domain.Chunker
	Embedder domain.Embedder
	Index    domain.Index
}

// Report summarizes a completed ingestion run.
type Report struct {
	Documents    int
	Chunks       int
	SkippedLines int
	Dimension    int
	Digest       string
}

// Run ingests the corpus at corpusPath into the index.
func (p *Pipeline) Run(ctx context.Context, corpusPath string) (*Report, error) {
	res, err := loader.Load(corpusPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded %d documents (%d lines skipped)", len(res.Documents), res.Skipped)

	var chunks []domain.Chunk
	for _, doc := range res.Documents {
		chunks = append(chunks, p.Chunker.Chunk(doc)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunking corpus %s: %w", corpusPath, domain.ErrCorpusEmpty)
	}
	logger.Debug("split into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding corpus: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	dimension := p.Embedder.Dimension()
	if err := p.Index.Rebuild(ctx, dimension, chunks); err != nil {
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}
	logger.Debug("index rebuilt: %d chunks, dimension %d", len(chunks), dimension)

	return &Report{
		Documents:    len(res.Documents),
		Chunks:       len(chunks),
		SkippedLines: res.Skipped,
		Dimension:    dimension,
		Digest:       summarizer.NewFrequency(digestSentences).Digest(res.Documents),
	}, nil
}
