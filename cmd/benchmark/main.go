// Command benchmark measures retrieval quality against an ingested index: it
// embeds one question, prints the ranked chunks with their similarity and
// summarizes how well the top results match.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"chemtutor/config"
	"chemtutor/internal/adapter/embedding"
	"chemtutor/internal/adapter/embedding/hashembed"
	"chemtutor/internal/adapter/store"
	"chemtutor/internal/domain"
	"chemtutor/internal/port"
	"chemtutor/internal/retry"
	"chemtutor/internal/usecase"
)

func main() {
	indexPath := flag.String("index", ".", "Path to the project holding the index")
	query := flag.String("q", "", "Question to test")
	topK := flag.Int("k", 10, "Number of results")
	chapter := flag.String("chapter", "", "Restrict to one chapter number")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -index ./kennslubok -q \"Hvað er mól?\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index size and embedding model")
		fmt.Println("  2. Ranked chunks with similarity ratings")
		fmt.Println("  3. Average and top-1 similarity")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	embedder, vectorStore, count, err := setupRetrieval(ctx, cfg, *indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval not available: %v\n", err)
		os.Exit(1)
	}
	defer vectorStore.Close()

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("Chunks indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Question: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	var filter map[string]string
	if *chapter != "" {
		filter = map[string]string{domain.MetaChapterNumber: *chapter}
	}

	retriever := usecase.NewRetrieveUseCase(embedder, vectorStore,
		retry.Policy{Attempts: cfg.Embedding.RetryAttempts, Delay: cfg.Embedding.RetryBackoff()}, zap.NewNop())
	result, err := retriever.Retrieve(ctx, *query, *topK, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval error: %v\n", err)
		os.Exit(1)
	}
	if result.Empty() {
		fmt.Println("No matching chunks.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(result.Chunks))

	totalScore := 0.0
	for i, c := range result.Chunks {
		preview := c.Text
		if utf8.RuneCountInString(preview) > 150 {
			preview = string([]rune(preview)[:150]) + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")

		similarity := c.Score
		totalScore += similarity

		meta := domain.MetadataFromMap(c.Metadata)
		fmt.Printf("%d. [%s %.3f] %s (Kafli %s: %s, %d orð)\n", i+1, rating(similarity), similarity,
			c.ID, meta.SectionNumber, meta.SectionTitle, meta.WordCount)
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(result.Chunks))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", result.Chunks[0].Score)

	switch {
	case avgScore > 0.5:
		fmt.Println("  Status: GOOD - retrieval is working well")
	case avgScore > 0.3:
		fmt.Println("  Status: OK - results are somewhat related")
	default:
		fmt.Println("  Status: POOR - check the embedding model or re-ingest")
	}
}

func rating(similarity float64) string {
	switch {
	case similarity > 0.7:
		return "HIGH"
	case similarity > 0.5:
		return "GOOD"
	case similarity > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

func setupRetrieval(ctx context.Context, cfg *config.Config, dir string) (port.Embedder, port.VectorStore, int, error) {
	var embedder port.Embedder
	var err error

	timeout := cfg.Embedding.Timeout()
	switch cfg.Embedding.Provider {
	case "ollama":
		embedder = embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	case "openai":
		embedder, err = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	case "gemini":
		embedder, err = embedding.NewGeminiEmbedder(ctx, os.Getenv(cfg.Embedding.APIKeyEnv),
			cfg.Embedding.Model, embedding.TaskRetrievalQuery, cfg.Embedding.Dimension)
	case "mock":
		embedder = hashembed.New(cfg.Embedding.Dimension)
	default:
		return nil, nil, 0, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("embedder init failed: %w", err)
	}

	var vectorStore port.VectorStore
	switch cfg.Store.Backend {
	case "sqlite":
		vectorStore, err = store.OpenSQLiteVectorStore(cfg.StorePath(dir), embedder.Dimension())
	case "", "bolt":
		vectorStore, err = store.OpenBoltVectorStore(cfg.StorePath(dir), embedder.Dimension())
	default:
		return nil, nil, 0, fmt.Errorf("benchmark needs a persistent store, got %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("vector store failed: %w", err)
	}

	count, err := indexSize(ctx, vectorStore)
	if err != nil {
		vectorStore.Close()
		return nil, nil, 0, err
	}

	return embedder, vectorStore, count, nil
}

// indexSize returns the number of stored chunks and fails on an empty index.
func indexSize(ctx context.Context, st port.VectorStore) (int, error) {
	count, err := st.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading store: %w", err)
	}
	if count == 0 {
		return 0, fmt.Errorf("no chunks - run 'tutor ingest' first")
	}
	return count, nil
}
