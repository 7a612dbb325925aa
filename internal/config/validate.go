// ABOUTME: Validation of loaded configuration
// ABOUTME: Collects every problem into a single ConfigurationError
package config

import (
	"fmt"
	"slices"

	"github.com/harper/optimedix/internal/models"
)

var (
	embeddingProviders = []string{"voyage", "openai", "gemini", "hash"}
	llmProviders       = []string{"gemini", "openai"}
	indexBackends      = []string{"chromem", "memory", "qdrant", "sqlite"}
	logLevels          = []string{"debug", "info", "warn", "error"}
	logFormats         = []string{"console", "json"}
)

// Validate checks the configuration and returns a *models.ConfigurationError listing every problem
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Corpus.Path == "" {
		add("corpus.path is required")
	}
	if len(c.Corpus.Extensions) == 0 {
		add("corpus.extensions must list at least one extension")
	}

	if c.Chunking.Size <= 0 {
		add("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		add("chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap)
	}

	if !slices.Contains(embeddingProviders, c.Embedding.Provider) {
		add("embedding.provider must be one of %v, got %q", embeddingProviders, c.Embedding.Provider)
	} else if c.Embedding.Provider != "hash" && c.Embedding.APIKey == "" {
		add("embedding.api_key is required for provider %s", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		add("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	} else if c.Embedding.Provider == "gemini" && c.Embedding.Dimension > GeminiMaxDimension {
		add("embedding.dimension must be at most %d for provider gemini, got %d", GeminiMaxDimension, c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize <= 0 {
		add("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		add("embedding.requests_per_second cannot be negative")
	}

	if !slices.Contains(indexBackends, c.Index.Backend) {
		add("index.backend must be one of %v, got %q", indexBackends, c.Index.Backend)
	}
	if c.Index.Name == "" {
		add("index.name is required")
	}
	if c.Index.Namespace == "" {
		add("index.namespace is required")
	}
	if c.Index.Backend == "qdrant" && (c.Index.QdrantHost == "" || c.Index.QdrantPort <= 0) {
		add("index.qdrant_host and index.qdrant_port are required for the qdrant backend")
	}

	if !slices.Contains(llmProviders, c.LLM.Provider) {
		add("llm.provider must be one of %v, got %q", llmProviders, c.LLM.Provider)
	} else if c.LLM.APIKey == "" {
		add("llm.api_key is required for provider %s", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		add("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature must be 0-2, got %g", c.LLM.Temperature)
	}
	if c.LLM.MaxOutputTokens <= 0 {
		add("llm.max_output_tokens must be positive, got %d", c.LLM.MaxOutputTokens)
	}

	if c.Retrieval.TopK <= 0 {
		add("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Memory.Window <= 0 {
		add("memory.window must be positive, got %d", c.Memory.Window)
	}
	if c.Memory.SessionTTL < 0 {
		add("memory.session_ttl must not be negative")
	}
	if c.Memory.MaxSessions < 0 {
		add("memory.max_sessions must not be negative, got %d", c.Memory.MaxSessions)
	}

	if c.Remote.Timeout <= 0 {
		add("remote.timeout must be positive")
	}
	if c.Remote.Retries < 0 || c.Remote.Retries > 5 {
		add("remote.retries must be 0-5, got %d", c.Remote.Retries)
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		add("log.level must be one of %v, got %q", logLevels, c.Log.Level)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		add("log.format must be one of %v, got %q", logFormats, c.Log.Format)
	}

	if len(problems) > 0 {
		return &models.ConfigurationError{Problems: problems}
	}
	return nil
}
