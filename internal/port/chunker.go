package port

import "chemtutor/internal/domain"

// Chunker turns one markdown document into stored-ready chunks.
type Chunker interface {
	Chunk(source, content string) ([]domain.Chunk, error)
}

// Validator is the admission gate run before chunking.
type Validator interface {
	ValidateContent(content string) domain.ValidationResult
	ValidateFile(path string) (domain.ValidationResult, string)
}
