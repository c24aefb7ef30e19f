package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"ragchat/internal/domain"
)

// Splitter cuts document text into overlapping windows of at most size bytes.
// Window ends are snapped back to the coarsest separator found inside the
// window (paragraph break, line break, sentence end, space); when none lands
// past the window start, the cut is a hard cut at size. Splitting is a pure
// function of (text, size, overlap), so identical input always yields
// identical chunk boundaries and ids.
type Splitter struct {
	size    int
	overlap int
}

// separators ordered coarsest first.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// New creates a Splitter. Out-of-range arguments fall back to the defaults
// (size 1000, overlap 200).
func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Splitter{size: size, overlap: overlap}
}

// Chunk splits the document into chunks. Chunk text is the raw substring of
// the document, untrimmed, so doc.Text[c.StartOffset:c.StartOffset+len(c.Text)]
// always equals c.Text, and adjacent chunks overlap by exactly the configured
// overlap except where a window degenerated at a separator boundary.
func (s *Splitter) Chunk(doc domain.Document) []domain.Chunk {
	text := doc.Text
	if strings.TrimSpace(text) == "" {
		return nil
	}
	key := DocumentKey(doc.Source, doc.ID)
	var chunks []domain.Chunk
	start := 0
	for start < len(text) {
		end := start + s.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = snap(text, start, end)
		}
		chunks = append(chunks, domain.Chunk{
			ID:          key + ":" + strconv.Itoa(start),
			DocumentID:  key,
			Text:        text[start:end],
			StartOffset: start,
		})
		if end == len(text) {
			break
		}
		next := runeFloor(text, end-s.overlap)
		if next <= start {
			// Separator snapped the window down to less than the overlap;
			// continue without overlap rather than stalling.
			next = end
		}
		start = next
	}
	return chunks
}

// snap returns the cut position for a window [start, end), preferring the
// latest occurrence of the coarsest separator. The cut lands after the
// separator so the separator stays with the earlier chunk. A hard cut backs
// up to a rune boundary so multi-byte runes are never split across chunks.
func snap(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + idx + len(sep)
		}
	}
	if cut := runeFloor(text, end); cut > start {
		return cut
	}
	return end
}

// runeFloor walks i back to the start of the rune containing it, keeping cut
// points and overlap rewinds on valid UTF-8 boundaries.
func runeFloor(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// DocumentKey derives the stable identifier for a document from its
// (source, id) identity pair. Chunk ids are built from this key plus the
// chunk start offset.
func DocumentKey(source, id string) string {
	h := sha1.Sum([]byte(source + "\x00" + id))
	return hex.EncodeToString(h[:8])
}
