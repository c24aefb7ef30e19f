// Package summarizer produces the short corpus digest shown in the ingestion
// report. Sentences are ranked by stopword-filtered token frequency; the top
// sentences are returned in their original order.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"ragchat/internal/domain"
)

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Frequency is a frequency-based sentence ranker.
type Frequency struct {
	maxSentences int
	stopwords    map[string]struct{}
}

// NewFrequency creates a digest builder keeping at most maxSentences sentences.
func NewFrequency(maxSentences int) *Frequency {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Frequency{maxSentences: maxSentences, stopwords: defaultStopwords()}
}

// Digest summarizes the corpus by ranking sentences across all documents.
func (f *Frequency) Digest(docs []domain.Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(d.Text)
		b.WriteString("\n")
	}
	text := b.String()

	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range f.tokens(sent) {
			if _, stop := f.stopwords[tok]; stop {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := f.tokens(sent)
		s := 0.0
		for _, tok := range toks {
			s += freq[tok]
		}
		// Length-normalize so long sentences do not dominate.
		if n := float64(len(toks)); n > 0 {
			s /= math.Sqrt(n)
		}
		scores[i] = scored{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := f.maxSentences
	if keep > len(scores) {
		keep = len(scores)
	}
	selected := make([]int, keep)
	for i := 0; i < keep; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	parts := make([]string, 0, keep)
	for _, idx := range selected {
		parts = append(parts, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(parts, " ")
}

func (f *Frequency) tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
