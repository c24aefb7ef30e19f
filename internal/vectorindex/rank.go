// Package vectorindex provides shared similarity scoring for the index
// backends.
package vectorindex

import (
	"math"
	"sort"

	"ragchat/internal/domain"
)

// Cosine computes the cosine similarity of two vectors, in [-1, 1].
// Accumulation is done in float64 to keep the exact-match score at 1.0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores every chunk against the query vector and returns the top k by
// descending similarity, ties broken by chunk id ascending for determinism.
func Rank(chunks []domain.Chunk, query []float32, k int) []domain.RetrievalResult {
	results := make([]domain.RetrievalResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, domain.RetrievalResult{Chunk: c, Score: Cosine(c.Embedding, query)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if k < 0 {
		k = 0
	}
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}
