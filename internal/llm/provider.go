// ABOUTME: Provider interfaces for embedding and text generation
// ABOUTME: Implemented by the OpenAI-compatible, Gemini and local hashing clients
package llm

import (
	"context"

	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/util"
)

// Embedder maps text to fixed-dimension vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the declared vector length for the process lifetime
	Dimension() int
}

// GenerateOptions controls a single completion
type GenerateOptions struct {
	MaxOutputTokens int
	Temperature     float64
}

// Generator produces a completion for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// checkDimensions rejects vectors whose length differs from the declared dimension.
// The error is permanent so retries stop immediately.
func checkDimensions(where string, want int, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != want {
			return util.Permanent(&models.DimensionMismatchError{Expected: want, Actual: len(v), Where: where})
		}
	}
	return nil
}
