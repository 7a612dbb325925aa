// ABOUTME: Embedding and retrieval result types shared by providers and indexes
// ABOUTME: Defines EmbeddedVector, ScoredChunk and RetrievalResult
package models

// EmbeddedVector is a chunk together with its embedding
type EmbeddedVector struct {
	Vector []float32     `json:"vector"`
	Chunk  DocumentChunk `json:"chunk"`
}

// ScoredChunk is a retrieved chunk with the index's relevance score
type ScoredChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// RetrievalResult is the ranked output of a similarity search
type RetrievalResult []ScoredChunk

// Texts returns the chunk texts in ranking order
func (r RetrievalResult) Texts() []string {
	out := make([]string, len(r))
	for i, sc := range r {
		out[i] = sc.Chunk.Text
	}
	return out
}

// Sources returns the distinct source identifiers in first-seen order
func (r RetrievalResult) Sources() []string {
	seen := make(map[string]bool, len(r))
	var out []string
	for _, sc := range r {
		src := sc.Chunk.Source
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
