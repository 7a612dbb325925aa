// ABOUTME: Gemini client for generation and embeddings through google.golang.org/genai
// ABOUTME: Default generator, matching the hosted model the assistant was built around
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/harper/optimedix/internal/util"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the default generation model
	DefaultGeminiModel = "gemini-2.0-flash"
	// DefaultGeminiEmbeddingModel is the default embedding model
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// GeminiConfig holds configuration for the Gemini client
type GeminiConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Dimension      int
	// BaseURL overrides the Gemini API endpoint
	BaseURL string
	Retry   util.Policy
}

// GeminiClient wraps genai.Client with retry logic
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	dimension      int
	retry          util.Policy
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, config *GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: config.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	embeddingModel := config.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultGeminiEmbeddingModel
	}

	return &GeminiClient{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		dimension:      config.Dimension,
		retry:          config.Retry,
	}, nil
}

// Generate produces a single completion for prompt
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(opts.MaxOutputTokens),
	}

	var text string
	err := util.Do(ctx, c.retry, func(ctx context.Context) error {
		result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
		if err != nil {
			return classifyGemini(err)
		}
		if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			return errors.New("no candidates returned")
		}

		var sb strings.Builder
		for _, p := range result.Candidates[0].Content.Parts {
			if p.Text != "" {
				sb.WriteString(p.Text)
			}
		}
		text = sb.String()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return text, nil
}

// Dimension returns the declared embedding dimension
func (c *GeminiClient) Dimension() int {
	return c.dimension
}

// Embed returns the embedding of a single text
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds each text as its own content in one request
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{}
	if c.dimension > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(c.dimension))
	}

	var vectors [][]float32
	err := util.Do(ctx, c.retry, func(ctx context.Context) error {
		result, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, cfg)
		if err != nil {
			return classifyGemini(err)
		}
		if len(result.Embeddings) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
		}
		out := make([][]float32, len(texts))
		for i, e := range result.Embeddings {
			out[i] = e.Values
		}
		if err := checkDimensions("gemini embeddings", c.dimension, out); err != nil {
			return err
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	return vectors, nil
}

// classifyGemini marks client errors other than 408 and 429 as permanent
func classifyGemini(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return util.Permanent(err)
	}
	return err
}
