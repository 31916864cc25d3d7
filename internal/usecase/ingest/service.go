package ingest

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// Service handles corpus CRUD with automatic vectorization.
type Service struct {
	repo      Repository
	embed     Embedder
	vectorDim int
}

// New creates an ingestion service. vectorDim > 0 enables a dimension
// check against the index schema on every upsert.
func New(repo Repository, embed Embedder, vectorDim int) *Service {
	return &Service{repo: repo, embed: embed, vectorDim: vectorDim}
}

// Upsert creates or updates a document with automatic vectorization.
// Returns true if the document was created, false if updated.
func (s *Service) Upsert(ctx context.Context, doc *domain.Document) (bool, error) {
	result, err := s.embed.Embed(ctx, doc.Content())
	if err != nil {
		return false, fmt.Errorf("vectorize document: %w", err)
	}

	domain.UsageFromContext(ctx).AddEmbeddingTokens(result.TotalTokens)

	if s.vectorDim > 0 && len(result.Embedding) != s.vectorDim {
		return false, fmt.Errorf(
			"vector dimension mismatch: got %d, want %d: %w",
			len(result.Embedding), s.vectorDim, domain.ErrVectorDimMismatch,
		)
	}

	doc.SetVector(result.Embedding)
	created, err := s.repo.Upsert(ctx, doc)
	if err != nil {
		return false, fmt.Errorf("upsert document: %w", err)
	}
	return created, nil
}

// Get retrieves a document by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Delete removes a document by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
