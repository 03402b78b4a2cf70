package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder turns dish text into a vector in the index space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder embeds text with a Gemini embedding model. A fresh SDK
// client is opened per call and closed before returning.
type GeminiEmbedder struct {
	apiKey string
	model  string
}

func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	if strings.TrimSpace(model) == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbedder{apiKey: strings.TrimSpace(apiKey), model: model}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	resp, err := cl.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Embedding.Values, nil
}
