package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	"github.com/kailas-cloud/ragpipe/internal/usecase/retrieve"
)

// Service orchestrates the question-answering pipeline:
// expand, retrieve per query, merge, compose.
type Service struct {
	expand     QueryExpander
	retrieve   Retriever
	compose    Composer
	numQueries int
	topK       int
}

// New creates the pipeline orchestrator. numQueries and topK are the
// configured defaults; request values override them when positive.
func New(expand QueryExpander, retriever Retriever, composer Composer, numQueries, topK int) *Service {
	if numQueries <= 0 {
		numQueries = domain.DefaultNumQueries
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &Service{
		expand:     expand,
		retrieve:   retriever,
		compose:    composer,
		numQueries: numQueries,
		topK:       topK,
	}
}

// Ask answers a question grounded in the document corpus.
//
// Expansion and final generation failures abort the pipeline; individual
// sub-query retrieval failures do not (the retriever degrades them to
// empty results). Caller cancellation always surfaces as domain.ErrCanceled.
func (s *Service) Ask(ctx context.Context, req domain.AskRequest) (domain.Answer, error) {
	if req.Question == "" {
		return domain.Answer{}, fmt.Errorf("question is required")
	}

	numQueries := s.numQueries
	if req.NumQueries > 0 {
		numQueries = req.NumQueries
	}
	topK := s.topK
	if req.TopK > 0 {
		topK = req.TopK
	}

	start := time.Now()

	ans, err := s.ask(ctx, req.Question, numQueries, topK)

	metrics.AskDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.AsksTotal.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrCanceled):
		metrics.AsksTotal.WithLabelValues("canceled").Inc()
	default:
		metrics.AsksTotal.WithLabelValues("error").Inc()
	}

	return ans, err
}

func (s *Service) ask(ctx context.Context, question string, numQueries, topK int) (domain.Answer, error) {
	log := logger.FromContext(ctx)

	queries, err := s.expand.Expand(ctx, question, numQueries)
	if err != nil {
		if cancelErr := canceled(ctx, err); cancelErr != nil {
			return domain.Answer{}, cancelErr
		}
		return domain.Answer{}, fmt.Errorf("expand question: %w", err)
	}

	results, err := s.retrieve.RetrieveAll(ctx, queries, topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	docs := retrieve.Merge(results)
	if len(docs) == 0 {
		log.Info("No documents retrieved, answering from empty context",
			zap.String("question", question))
	}

	text, err := s.compose.Compose(ctx, question, docs)
	if err != nil {
		if cancelErr := canceled(ctx, err); cancelErr != nil {
			return domain.Answer{}, cancelErr
		}
		return domain.Answer{}, fmt.Errorf("compose answer: %w", err)
	}

	return domain.Answer{
		Question: question,
		Text:     text,
		Queries:  queries,
		Sources:  docs,
	}, nil
}

// canceled maps a provider failure caused by caller cancellation to
// domain.ErrCanceled; returns nil when the context is still live.
func canceled(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrCanceled, err)
}
