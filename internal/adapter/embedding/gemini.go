package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Task types understood by the Gemini embedding endpoint.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GeminiEmbedder generates embeddings with Google's Gemini API. Chunks are
// embedded with TaskRetrievalDocument and questions with TaskRetrievalQuery.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	taskType  string
	dimension int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model, taskType string, dimension int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if taskType == "" {
		taskType = TaskRetrievalDocument
	}
	if dimension <= 0 {
		dimension = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{client: client, model: model, taskType: taskType, dimension: dimension}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	dim := int32(e.dimension)
	var all [][]float32
	for i := 0; i < len(texts); i += maxBatch {
		end := min(i+maxBatch, len(texts))

		contents := make([]*genai.Content, 0, end-i)
		for _, text := range texts[i:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType:             e.taskType,
			OutputDimensionality: &dim,
		})
		if err != nil {
			return nil, fmt.Errorf("Gemini embed failed: %w", err)
		}
		if len(result.Embeddings) != end-i {
			return nil, fmt.Errorf("Gemini returned %d embeddings for %d inputs", len(result.Embeddings), end-i)
		}
		for _, emb := range result.Embeddings {
			all = append(all, emb.Values)
		}
	}
	return all, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}
