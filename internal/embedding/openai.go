package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/DreamCats/medindex/internal/config"
)

// OpenAIClient embeds through any OpenAI-compatible endpoint using langchaingo.
type OpenAIClient struct {
	model    string
	embedder *embeddings.EmbedderImpl
}

// NewOpenAIClient creates a new OpenAI-compatible embedding client
func NewOpenAIClient(cfg *config.EmbeddingConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api_key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(model),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}

	// Batching and retries happen in Service, one text per call.
	embedder, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(1),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIClient{model: model, embedder: embedder}, nil
}

// Name identifies the provider in logs.
func (c *OpenAIClient) Name() string { return "openai" }

// EmbedContent embeds a single text
func (c *OpenAIClient) EmbedContent(ctx context.Context, text string) ([]float64, error) {
	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out, nil
}
