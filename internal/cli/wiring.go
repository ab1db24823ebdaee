package cli

import (
	"context"
	"fmt"
	"os"

	"chemtutor/config"
	"chemtutor/internal/adapter/chunker"
	"chemtutor/internal/adapter/embedding"
	"chemtutor/internal/adapter/embedding/hashembed"
	"chemtutor/internal/adapter/llm"
	"chemtutor/internal/adapter/memstore"
	"chemtutor/internal/adapter/store"
	"chemtutor/internal/adapter/validator"
	"chemtutor/internal/port"
	"chemtutor/internal/retry"
)

// newEmbedder builds the configured embedder. task selects the Gemini task
// type and is ignored by the other providers.
func newEmbedder(ctx context.Context, c *config.Config, task string) (port.Embedder, error) {
	e := c.Embedding
	timeout := e.Timeout()

	switch e.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model, e.BaseURL, timeout)
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL, timeout), nil
	case "gemini":
		return embedding.NewGeminiEmbedder(ctx, os.Getenv(e.APIKeyEnv), e.Model, task, e.Dimension)
	case "mock":
		return hashembed.New(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}

func newGenerator(c *config.Config) (port.Generator, error) {
	g := c.Generation
	lc := llm.Config{
		APIKey:      os.Getenv(g.APIKeyEnv),
		BaseURL:     g.BaseURL,
		Model:       g.Model,
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
		Timeout:     g.GenerationTimeout(),
	}

	switch g.Provider {
	case "anthropic":
		if lc.APIKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", g.APIKeyEnv)
		}
		return llm.NewAnthropicGenerator(lc)
	case "openai":
		return llm.NewOpenAIGenerator(lc)
	case "mock":
		return llm.NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", g.Provider)
	}
}

// openStore opens the configured vector store for dir. The memory backend
// starts empty on every run.
func openStore(c *config.Config, dir string, dimension int) (port.VectorStore, error) {
	switch c.Store.Backend {
	case "", "bolt":
		return store.OpenBoltVectorStore(c.StorePath(dir), dimension)
	case "sqlite":
		return store.OpenSQLiteVectorStore(c.StorePath(dir), dimension)
	case "memory":
		return memstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}
}

// requireIndex fails early when a persistent store has never been written.
func requireIndex(c *config.Config, dir string) error {
	if c.Store.Backend == "memory" {
		return nil
	}
	if _, err := os.Stat(c.StorePath(dir)); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'tutor ingest' first")
	}
	return nil
}

func newValidator(c *config.Config) *validator.Validator {
	return validator.New(validator.LimitsFromConfig(c.Validation), logger)
}

func newChunker(c *config.Config) *chunker.MarkdownChunker {
	return chunker.NewMarkdownChunker(chunker.LimitsFromConfig(c.Chunking), logger)
}

func embeddingRetry(c *config.Config) retry.Policy {
	return retry.Policy{Attempts: c.Embedding.RetryAttempts, Delay: c.Embedding.RetryBackoff()}
}

func generationRetry(c *config.Config) retry.Policy {
	return retry.Policy{Attempts: c.Generation.RetryAttempts, Delay: c.Generation.RetryBackoff()}
}
