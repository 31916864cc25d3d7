package answer

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// QueryExpander turns one question into several alternative phrasings.
type QueryExpander interface {
	Expand(ctx context.Context, question string, n int) ([]string, error)
}

// Retriever runs one similarity search per expanded query.
type Retriever interface {
	RetrieveAll(ctx context.Context, queries []string, topK int) ([]domain.RetrievalResult, error)
}

// Composer grounds the final answer in the retrieved documents.
type Composer interface {
	Compose(ctx context.Context, question string, docs []domain.Document) (string, error)
}
