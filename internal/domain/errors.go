package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyQuery     = errors.New("question is empty")
	ErrEmptyContext   = errors.New("no context chunks allowed")
	ErrMissingChapter = errors.New("missing chapter heading (# Kafli N: Title)")
	ErrNoSections     = errors.New("no sections (## N.M Title) found")
)

// ValidationError is returned when a document fails the admission gate.
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return "validation failed: " + strings.Join(e.Errors, "; ")
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Source, strings.Join(e.Errors, "; "))
}

// ParseError reports structure that could not be chunked.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return "parse: " + e.Err.Error()
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransientServiceError wraps a failed call to an embedding, generation or
// store collaborator.
type TransientServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *TransientServiceError) Unwrap() error { return e.Err }

// GenerationError is terminal: the generator failed on every attempt.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
