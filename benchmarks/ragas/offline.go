// ABOUTME: Deterministic offline providers for running benchmarks without API keys
// ABOUTME: Pairs the local hashing embedder with a generator that answers from the prompt context

package ragas

import (
	"context"
	"strings"
	"time"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/llm"
)

// ExtractiveGenerator answers with the context passages of the prompt.
// It stands in for the model so retrieval can be scored without network access.
type ExtractiveGenerator struct{}

// Generate implements llm.Generator
func (ExtractiveGenerator) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	passages := contextFromPrompt(prompt)
	if len(passages) == 0 {
		return "The provided context does not cover this question.", nil
	}
	return "Based on the provided context: " + strings.Join(passages, " "), nil
}

// OfflineConfig returns a configuration using the hashing embedder and an in-memory index
func OfflineConfig() *config.Config {
	return &config.Config{
		Corpus:    config.CorpusConfig{Extensions: []string{".txt", ".md"}, WatchDebounce: 500 * time.Millisecond},
		Chunking:  config.ChunkingConfig{Size: 500, Overlap: 100},
		Embedding: config.EmbeddingConfig{Provider: "hash", Dimension: 256, BatchSize: 32},
		Index:     config.IndexConfig{Backend: "memory", Name: "medical-knowledge", Namespace: "medical_data"},
		LLM:       config.LLMConfig{Provider: "offline", Model: "extractive", MaxOutputTokens: 2048, Temperature: 0.1},
		Retrieval: config.RetrievalConfig{TopK: 8},
		Memory:    config.MemoryConfig{Window: 5},
		FollowUp:  config.FollowUpConfig{MergeReplies: true},
		Storage:   config.StorageConfig{Path: app.InMemoryStorage},
		Log:       config.LogConfig{Level: "warn", Format: "console"},
	}
}
