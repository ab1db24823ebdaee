package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chemtutor/internal/domain"
	"chemtutor/internal/port"
	"chemtutor/internal/retry"
)

// RetrieveUseCase embeds a question and searches the vector store with it.
type RetrieveUseCase struct {
	embedder port.Embedder
	store    port.VectorStore
	policy   retry.Policy
	logger   *zap.Logger
}

// NewRetrieveUseCase creates a new retrieve use case. The embedder should be
// configured for queries when the provider distinguishes query and document
// embeddings.
func NewRetrieveUseCase(embedder port.Embedder, store port.VectorStore, policy retry.Policy, logger *zap.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrieveUseCase{
		embedder: embedder,
		store:    store,
		policy:   policy,
		logger:   logger,
	}
}

// Retrieve returns the topK stored chunks most similar to question whose
// metadata matches every entry of filter. No matches is an empty result, not
// an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, question string, topK int, filter map[string]string) (domain.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return domain.RetrievalResult{}, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		return domain.RetrievalResult{}, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	policy := u.policy
	policy.OnRetry = func(attempt int, err error) {
		u.logger.Warn("query embedding failed, retrying",
			zap.String("stage", "embed"), zap.Int("attempt", attempt), zap.Error(err))
	}
	vectors, err := retry.Do(ctx, policy, func(ctx context.Context) ([][]float32, error) {
		return u.embedder.Embed(ctx, []string{question})
	})
	if err != nil {
		return domain.RetrievalResult{}, serviceError("embedding", "embed query", err)
	}
	if len(vectors) != 1 {
		return domain.RetrievalResult{}, &domain.TransientServiceError{
			Service: "embedding",
			Op:      "embed query",
			Err:     fmt.Errorf("expected 1 vector, got %d", len(vectors)),
		}
	}

	results, err := u.store.Query(ctx, vectors[0], topK, filter)
	if err != nil {
		return domain.RetrievalResult{}, serviceError("store", "query", err)
	}

	chunks := make([]domain.RetrievedChunk, len(results))
	for i, r := range results {
		chunks[i] = domain.RetrievedChunk{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Score:    r.Score,
		}
	}

	u.logger.Debug("retrieved chunks",
		zap.String("stage", "retrieve"), zap.Int("top_k", topK), zap.Int("found", len(chunks)))

	return domain.RetrievalResult{Query: question, Chunks: chunks}, nil
}

// serviceError wraps a collaborator failure. Context cancellation passes
// through untouched so callers can tell it apart.
func serviceError(service, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.TransientServiceError{Service: service, Op: op, Err: err}
}
