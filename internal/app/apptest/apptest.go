// ABOUTME: Builds a fully wired App over fakes for tests of the outer surfaces
// ABOUTME: Uses the in-memory index, in-memory sqlite and a temp corpus directory
package apptest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/llm/llmtest"
)

// Dimension of the fake embedder
const Dimension = 64

// Config returns a valid configuration rooted at corpus that needs no network
func Config(corpus string) *config.Config {
	return &config.Config{
		Corpus:    config.CorpusConfig{Path: corpus, Extensions: []string{".txt", ".md"}, WatchDebounce: 20 * time.Millisecond},
		Chunking:  config.ChunkingConfig{Size: 500, Overlap: 100},
		Embedding: config.EmbeddingConfig{Provider: "hash", Dimension: Dimension, BatchSize: 8},
		Index:     config.IndexConfig{Backend: "memory", Name: "medical-knowledge", Namespace: "medical_data"},
		LLM:       config.LLMConfig{Provider: "gemini", Model: "fake", APIKey: "test", Temperature: 0.1, MaxOutputTokens: 256},
		Retrieval: config.RetrievalConfig{TopK: 8},
		Memory:    config.MemoryConfig{Window: 5},
		FollowUp:  config.FollowUpConfig{MergeReplies: true},
		Remote:    config.RemoteConfig{Timeout: time.Second, Retries: 0},
		Storage:   config.StorageConfig{Path: app.InMemoryStorage},
		Log:       config.LogConfig{Level: "info", Format: "console"},
		Server:    config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
	}
}

// Fixture is a wired App and the fakes behind it
type Fixture struct {
	App       *app.App
	Generator *llmtest.Generator
	Embedder  *llmtest.Embedder
	Corpus    string
}

// New writes docs (name -> content) into a temp corpus, opens an App over
// fakes answering with response, and ingests the corpus when docs is non-empty
func New(t *testing.T, docs map[string]string, response string) *Fixture {
	t.Helper()
	corpus := t.TempDir()
	for name, content := range docs {
		path := filepath.Join(corpus, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	f := &Fixture{
		Generator: llmtest.NewGenerator(response),
		Embedder:  llmtest.NewEmbedder(Dimension),
		Corpus:    corpus,
	}
	a, err := app.Open(context.Background(), Config(corpus), nil,
		app.WithEmbedder(f.Embedder),
		app.WithGenerator(f.Generator),
	)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	f.App = a

	if len(docs) > 0 {
		if _, err := a.Ingest(context.Background()); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	return f
}
