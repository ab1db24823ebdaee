package port

import (
	"context"

	"chemtutor/internal/domain"
)

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int, filter map[string]string) (domain.RetrievalResult, error)
}
