// ABOUTME: Builds embedders and generators from configuration
// ABOUTME: Missing credentials surface as ConfigurationError
package llm

import (
	"context"
	"fmt"

	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/util"
)

// NewEmbedder returns the embedder selected by cfg.Provider
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, retry util.Policy) (Embedder, error) {
	switch cfg.Provider {
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "voyage", "openai":
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Provider == "voyage" {
			baseURL = VoyageBaseURL
		}
		client, err := NewOpenAIClient(&ClientConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        baseURL,
			EmbeddingModel: cfg.Model,
			Dimension:      cfg.Dimension,
			Retry:          retry,
		})
		if err != nil {
			return nil, configError(err)
		}
		return client, nil
	case "gemini":
		client, err := NewGeminiClient(ctx, &GeminiConfig{
			APIKey:         cfg.APIKey,
			EmbeddingModel: cfg.Model,
			Dimension:      cfg.Dimension,
			BaseURL:        cfg.BaseURL,
			Retry:          retry,
		})
		if err != nil {
			return nil, configError(err)
		}
		return client, nil
	default:
		return nil, configError(fmt.Errorf("unknown embedding provider %q", cfg.Provider))
	}
}

// NewGenerator returns the generator selected by cfg.Provider
func NewGenerator(ctx context.Context, cfg config.LLMConfig, retry util.Policy) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		client, err := NewGeminiClient(ctx, &GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Retry:   retry,
		})
		if err != nil {
			return nil, configError(err)
		}
		return client, nil
	case "openai":
		client, err := NewOpenAIClient(&ClientConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			ChatModel: cfg.Model,
			Retry:     retry,
		})
		if err != nil {
			return nil, configError(err)
		}
		return client, nil
	default:
		return nil, configError(fmt.Errorf("unknown llm provider %q", cfg.Provider))
	}
}

func configError(err error) error {
	return &models.ConfigurationError{Problems: []string{err.Error()}}
}
