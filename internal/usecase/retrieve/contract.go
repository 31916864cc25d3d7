package retrieve

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs vector similarity searches over the document corpus.
type Searcher interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Match, error)
}
