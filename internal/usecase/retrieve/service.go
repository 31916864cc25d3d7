package retrieve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Service runs one similarity search per expanded query.
//
// Sub-query failures degrade to empty results so one bad search does not
// sink the whole pipeline. Cancellation of the parent context is the
// exception: it always surfaces as domain.ErrCanceled.
type Service struct {
	embed         Embedder
	search        Searcher
	concurrency   int
	searchTimeout time.Duration
}

// Option configures the retrieval service.
type Option func(*Service)

// WithConcurrency bounds parallel sub-query execution.
// Zero or one means sequential.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// WithSearchTimeout bounds each sub-query (embed + search) with its own deadline.
func WithSearchTimeout(d time.Duration) Option {
	return func(s *Service) { s.searchTimeout = d }
}

// New creates a retrieval service.
func New(embed Embedder, search Searcher, opts ...Option) *Service {
	s := &Service{embed: embed, search: search}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetrieveAll runs one search per query and returns exactly one result per
// query, in input order. Failed sub-queries come back as empty results.
func (s *Service) RetrieveAll(ctx context.Context, queries []string, topK int) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	results := make([]domain.RetrievalResult, len(queries))

	if s.concurrency > 1 && len(queries) > 1 {
		s.retrieveParallel(ctx, queries, topK, results)
	} else {
		for i, q := range queries {
			if ctx.Err() != nil {
				break
			}
			results[i] = s.retrieveOne(ctx, q, topK)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("retrieve: %w: %w", domain.ErrCanceled, err)
	}
	return results, nil
}

// retrieveParallel fans queries out to a bounded worker pool,
// writing each result to its input slot.
func (s *Service) retrieveParallel(ctx context.Context, queries []string, topK int, results []domain.RetrievalResult) {
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, q := range queries {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, q string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.retrieveOne(ctx, q, topK)
		}(i, q)
	}

	wg.Wait()
}

// retrieveOne embeds a query and searches the corpus.
// Provider and store failures are logged and degraded to an empty result.
func (s *Service) retrieveOne(ctx context.Context, query string, topK int) domain.RetrievalResult {
	searchCtx := ctx
	if s.searchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.searchTimeout)
		defer cancel()
	}

	log := logger.FromContext(ctx)

	embResult, err := s.embed.Embed(searchCtx, query)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("Sub-query embedding failed",
				zap.String("query", query), zap.Error(err))
			metrics.SubqueryFailuresTotal.WithLabelValues("embed").Inc()
		}
		return domain.EmptyRetrievalResult(query)
	}

	domain.UsageFromContext(ctx).AddEmbeddingTokens(embResult.TotalTokens)

	matches, err := s.search.SearchKNN(searchCtx, embResult.Embedding, topK)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("Sub-query search failed",
				zap.String("query", query), zap.Error(err))
			metrics.SubqueryFailuresTotal.WithLabelValues("search").Inc()
		}
		return domain.EmptyRetrievalResult(query)
	}

	return domain.NewRetrievalResult(query, matches)
}
