package ai

import (
	"context"
	"fmt"

	"basin-research-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder wraps the Google Generative AI embedding model. Constructed once
// at startup and shared, the underlying client is safe for concurrent use.
type Embedder struct {
	client *genai.Client
	model  string
	dims   int
}

func NewEmbedder(cfg *config.Config) (*Embedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client: client,
		model:  cfg.EmbeddingModel,
		dims:   cfg.VectorDimensions,
	}, nil
}

// Embed returns an embedding vector for the given text
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	if err := e.checkDims(resp.Embedding.Values); err != nil {
		return nil, err
	}

	// genai SDK returns []float32 for Embedding.Values
	return resp.Embedding.Values, nil
}

// checkDims rejects vectors that do not match the search index definition.
// A model/index mismatch would otherwise poison the collection silently.
func (e *Embedder) checkDims(vector []float32) error {
	if e.dims > 0 && len(vector) != e.dims {
		return fmt.Errorf("embedding has %d dimensions, index expects %d", len(vector), e.dims)
	}
	return nil
}

// EmbedBatch embeds several texts in one request, preserving input order.
// Used by ingestion where chunks arrive in the hundreds.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := e.client.EmbeddingModel(e.model)
	batch := model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		if err := e.checkDims(emb.Values); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *Embedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
