// ABOUTME: ChunkEngine splits documents into overlapping chunks for embedding
// ABOUTME: Prefers paragraph, line, sentence, punctuation and word boundaries before a hard cut
package core

import (
	"fmt"
	"strings"

	"github.com/harper/optimedix/internal/models"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// DefaultSeparators are tried in order; a hard cut is the implicit last resort
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " "}

// ChunkEngine handles boundary-aware text chunking. Sizes are counted in runes.
type ChunkEngine struct {
	size       int
	overlap    int
	separators [][]rune
}

// NewChunkEngine creates a ChunkEngine with the given size and overlap
func NewChunkEngine(size, overlap int) (*ChunkEngine, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	seps := make([][]rune, len(DefaultSeparators))
	for i, s := range DefaultSeparators {
		seps[i] = []rune(s)
	}
	return &ChunkEngine{size: size, overlap: overlap, separators: seps}, nil
}

// Split returns the chunk texts of text. Whitespace-only input yields nothing.
//
// Each chunk ends at the last boundary of the highest-priority separator that
// falls after the overlap region, or is cut at the size limit when none does.
// The next chunk starts overlap runes before the previous one ended, so
// consecutive chunks share exactly overlap runes.
func (ce *ChunkEngine) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []string
	start := 0
	for {
		end := len(runes)
		if end-start > ce.size {
			end = ce.boundary(runes, start)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			return chunks
		}
		start = end - ce.overlap
	}
}

// boundary picks the end of a chunk starting at start; the result lies in (start+overlap, start+size]
func (ce *ChunkEngine) boundary(runes []rune, start int) int {
	limit := start + ce.size
	for _, sep := range ce.separators {
		for end := limit; end > start+ce.overlap; end-- {
			if end-len(sep) >= start && hasSeparatorAt(runes, end, sep) {
				return end
			}
		}
	}
	return limit
}

// hasSeparatorAt reports whether runes[end-len(sep):end] equals sep
func hasSeparatorAt(runes []rune, end int, sep []rune) bool {
	for i := range sep {
		if runes[end-len(sep)+i] != sep[i] {
			return false
		}
	}
	return true
}

// ChunkDocument splits a document into chunks with stable IDs
func (ce *ChunkEngine) ChunkDocument(source, text string) ([]models.DocumentChunk, error) {
	parts := ce.Split(text)
	chunks := make([]models.DocumentChunk, 0, len(parts))
	for i, part := range parts {
		chunk, err := models.NewDocumentChunk(source, i, part)
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %s: %w", i, source, err)
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, nil
}
