package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// EmbeddingClient wraps the Google Generative AI embedding model
// (text-embedding-004 by default).
type EmbeddingClient struct {
	client *genai.Client
	model  string
}

func NewEmbeddingClient(apiKey, model string) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &EmbeddingClient{client: client, model: model}, nil
}

// Embed returns an embedding vector for the given text.
func (ec *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	model := ec.client.EmbeddingModel(ec.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}

	// genai SDK returns []float32 for Embedding.Values
	vec := make([]float64, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		vec[i] = float64(v)
	}
	return vec, nil
}

func (ec *EmbeddingClient) Close() error {
	if ec.client != nil {
		return ec.client.Close()
	}
	return nil
}
