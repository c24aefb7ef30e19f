// Package hashing implements a deterministic, offline feature-hashing
// embedder. Tokens are hashed into a fixed number of buckets and the bucket
// counts are L2-normalized, so identical text always produces an identical
// unit vector without any remote call or corpus preparation phase. It stands
// in for the hosted embedding model in tests and air-gapped setups.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"ragchat/internal/domain"
)

var _ domain.Embedder = (*Embedder)(nil)

// DefaultDimension is the bucket count used when none is configured.
const DefaultDimension = 256

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Embedder hashes tokens into dimension buckets.
type Embedder struct {
	dimension int
}

// New creates a hashing embedder with the given vector dimension.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Model identifies this embedder.
func (e *Embedder) Model() string { return "hashing" }

// Dimension returns the configured bucket count.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed bag-of-words vector for a single text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vectorize(text), nil
}

// EmbedBatch embeds all texts, preserving order.
func (e *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = e.vectorize(t)
	}
	return vecs, nil
}

func (e *Embedder) vectorize(text string) []float32 {
	vec := make([]float32, e.dimension)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dimension]++
	}
	// L2-normalize so cosine similarity reduces to a dot product.
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}
