// ABOUTME: Test doubles for the llm provider interfaces
// ABOUTME: Record calls and replay scripted responses or failures
package llmtest

import (
	"context"
	"sync"

	"github.com/harper/optimedix/internal/llm"
)

// Generator is a scripted llm.Generator
type Generator struct {
	mu sync.Mutex
	// Response is returned when no error is scripted for the call
	Response string
	// Errs are returned in order, one per call, before falling back to Response
	Errs    []error
	prompts []string
	opts    []llm.GenerateOptions
}

// NewGenerator returns a generator answering every prompt with response
func NewGenerator(response string) *Generator {
	return &Generator{Response: response}
}

func (g *Generator) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	if len(g.Errs) > 0 {
		err := g.Errs[0]
		g.Errs = g.Errs[1:]
		if err != nil {
			return "", err
		}
	}
	return g.Response, nil
}

// Calls returns how many times Generate ran
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns every prompt received
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Options returns the options of every call
func (g *Generator) Options() []llm.GenerateOptions {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.GenerateOptions(nil), g.opts...)
}

// Embedder wraps a HashEmbedder and can be told to fail
type Embedder struct {
	mu     sync.Mutex
	inner  *llm.HashEmbedder
	dim    int
	Err    error
	inputs []string
	// OverrideDimension, when non-zero, makes vectors this long regardless of Dimension()
	OverrideDimension int
}

// NewEmbedder returns an embedder of the given dimension
func NewEmbedder(dimension int) *Embedder {
	return &Embedder{inner: llm.NewHashEmbedder(dimension), dim: dimension}
}

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.inputs = append(e.inputs, texts...)
	err := e.Err
	override := e.OverrideDimension
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if override > 0 {
		return llm.NewHashEmbedder(override).EmbedBatch(ctx, texts)
	}
	return e.inner.EmbedBatch(ctx, texts)
}

// Inputs returns every text embedded so far
func (e *Embedder) Inputs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.inputs...)
}
