package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrMalformedGeneration signals unusable query-expansion output.
	ErrMalformedGeneration = errors.New("malformed generation output")
	// ErrCanceled signals that the caller canceled the pipeline or its deadline expired.
	ErrCanceled = errors.New("pipeline canceled")
)

// MalformedGenerationError wraps ErrMalformedGeneration with line counts:
// the expansion call produced fewer usable query lines than requested.
type MalformedGenerationError struct {
	Want int
	Got  int
}

func (e *MalformedGenerationError) Error() string {
	return fmt.Sprintf("%s: wanted %d queries, found %d usable lines", ErrMalformedGeneration.Error(), e.Want, e.Got)
}

func (e *MalformedGenerationError) Unwrap() error { return ErrMalformedGeneration }

// NewMalformedGeneration creates a malformed generation error.
func NewMalformedGeneration(want, got int) error {
	return &MalformedGenerationError{Want: want, Got: got}
}
