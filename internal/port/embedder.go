package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore stores and searches embedding vectors.
type VectorStore interface {
	// Upsert adds or replaces items by ID.
	Upsert(ctx context.Context, items []VectorItem) error

	// Query returns the k items most similar to vec whose metadata matches
	// every key/value in filter. Results are ordered by descending score,
	// ties in insertion order.
	Query(ctx context.Context, vec []float32, k int, filter map[string]string) ([]VectorResult, error)

	// Stats summarizes the stored chunks.
	Stats(ctx context.Context) (StoreStats, error)

	// Count returns the number of vectors in the store.
	Count(ctx context.Context) (int, error)

	Close() error
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string
	Text     string
	Score    float64 // cosine similarity, higher is better
	Metadata map[string]string
}

type StoreStats struct {
	TotalChunks    int
	UniqueChapters int
	UniqueSections int
	Chapters       []string
}
