// ABOUTME: DocumentChunk is a bounded slice of a source document used for embedding
// ABOUTME: Chunk IDs are UUIDv5 so re-ingesting the same text yields the same key
package models

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// chunkNamespace scopes every chunk ID generated by this module.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/harper/optimedix/chunks"))

// DocumentChunk is one piece of a corpus document
type DocumentChunk struct {
	ID       string `json:"id" yaml:"id"`
	Text     string `json:"text" yaml:"text"`
	Source   string `json:"source" yaml:"source"`
	Position int    `json:"position" yaml:"position"`
}

// NewDocumentChunk builds a chunk with its stable ID filled in
func NewDocumentChunk(source string, position int, text string) (*DocumentChunk, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("chunk source cannot be empty")
	}
	if position < 0 {
		return nil, errors.New("chunk position cannot be negative")
	}
	return &DocumentChunk{
		ID:       ChunkID(source, position, text),
		Text:     text,
		Source:   source,
		Position: position,
	}, nil
}

// ChunkID derives the deterministic identifier for a chunk
func ChunkID(source string, position int, text string) string {
	var b strings.Builder
	b.WriteString(source)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(position))
	b.WriteByte(0)
	b.WriteString(text)
	return uuid.NewSHA1(chunkNamespace, []byte(b.String())).String()
}
