// ABOUTME: Metrics decorators for embedders and generators
// ABOUTME: Records latency and result of every external call
package llm

import (
	"context"
	"time"

	"github.com/harper/optimedix/internal/metrics"
)

type instrumentedEmbedder struct {
	Embedder
	m *metrics.Metrics
}

// InstrumentEmbedder wraps e so each call is observed in m
func InstrumentEmbedder(e Embedder, m *metrics.Metrics) Embedder {
	if m == nil {
		return e
	}
	return &instrumentedEmbedder{Embedder: e, m: m}
}

func (i *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := i.Embedder.Embed(ctx, text)
	i.m.ObserveCall("embed", start, err)
	return v, err
}

func (i *instrumentedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	v, err := i.Embedder.EmbedBatch(ctx, texts)
	i.m.ObserveCall("embed_batch", start, err)
	return v, err
}

type instrumentedGenerator struct {
	Generator
	m *metrics.Metrics
}

// InstrumentGenerator wraps g so each call is observed in m
func InstrumentGenerator(g Generator, m *metrics.Metrics) Generator {
	if m == nil {
		return g
	}
	return &instrumentedGenerator{Generator: g, m: m}
}

func (i *instrumentedGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	start := time.Now()
	text, err := i.Generator.Generate(ctx, prompt, opts)
	i.m.ObserveCall("generate", start, err)
	return text, err
}
