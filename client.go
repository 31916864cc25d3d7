package ragpipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/db"
	dbRedis "github.com/kailas-cloud/ragpipe/internal/db/redis"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/prompt"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	documentrepo "github.com/kailas-cloud/ragpipe/internal/repository/document"
	"github.com/kailas-cloud/ragpipe/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/ragpipe/internal/repository/search"
	openaiProvider "github.com/kailas-cloud/ragpipe/internal/transport/openai"
	answeruc "github.com/kailas-cloud/ragpipe/internal/usecase/answer"
	composeuc "github.com/kailas-cloud/ragpipe/internal/usecase/compose"
	expanduc "github.com/kailas-cloud/ragpipe/internal/usecase/expand"
	ingestuc "github.com/kailas-cloud/ragpipe/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/ragpipe/internal/usecase/retrieve"
)

const (
	defaultReadinessTimeout = 10 * time.Second

	defaultEmbedModel = "text-embedding-3-small"
	defaultGenModel   = "gpt-4o-mini"
)

// Embedder converts text to a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Generator produces text from a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the generated text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Document is a stored corpus entry.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Usage reports provider token consumption for one invocation.
type Usage struct {
	EmbeddingTokens  int
	GenerationTokens int
}

// Answer is the outcome of one question-answering invocation.
type Answer struct {
	Question string
	Text     string
	Queries  []string
	Sources  []Document
	Usage    Usage
}

// Client is the ragpipe SDK entry point.
type Client struct {
	store     db.Store
	answerSvc *answeruc.Service
	ingestSvc *ingestuc.Service
}

// New creates a ragpipe Client, connects to Redis, and ensures the
// vector index exists.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: domain.DefaultVectorConfig().Dimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.embedModel == "" {
		cfg.embedModel = defaultEmbedModel
	}
	if cfg.genModel == "" {
		cfg.genModel = defaultGenModel
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("ragpipe: database address required (use WithRedis)")
	}
	if cfg.embedder == nil && cfg.openaiKey == "" {
		return nil, errors.New("ragpipe: embedding provider required (use WithOpenAI or WithEmbedder)")
	}
	if cfg.generator == nil && cfg.openaiKey == "" {
		return nil, errors.New("ragpipe: generation provider required (use WithOpenAI or WithGenerator)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("ragpipe: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("ragpipe: database not ready: %w", err)
	}

	client, err := wireClient(ctx, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return client, nil
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	metrics.RegisterProviderMetrics()
	metrics.RegisterPipelineMetrics()

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	docEmbedder, queryEmbedder := buildEmbedders(cfg, store, logger)
	generator := buildGenerator(cfg, logger)

	expandTmpl, err := parseTemplate(cfg.expandTemplate, "question", "num_queries")
	if err != nil {
		return nil, fmt.Errorf("ragpipe: expand template: %w", err)
	}
	answerTmpl, err := parseTemplate(cfg.answerTemplate, "question", "context")
	if err != nil {
		return nil, fmt.Errorf("ragpipe: answer template: %w", err)
	}

	vectorCfg := domain.DefaultVectorConfig()
	if cfg.vectorDimensions > 0 {
		vectorCfg.Dimensions = cfg.vectorDimensions
	}
	if cfg.hnswM > 0 {
		vectorCfg.HNSWM = cfg.hnswM
	}
	if cfg.hnswEFConstruct > 0 {
		vectorCfg.HNSWEFConstruct = cfg.hnswEFConstruct
	}

	docRepo := documentrepo.New(store, vectorCfg)
	if err := docRepo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ragpipe: ensure index: %w", err)
	}
	searchRepo := searchrepo.New(store)

	retrieveOpts := []retrieveuc.Option{}
	if cfg.concurrency > 0 {
		retrieveOpts = append(retrieveOpts, retrieveuc.WithConcurrency(cfg.concurrency))
	}
	if cfg.searchTimeout > 0 {
		retrieveOpts = append(retrieveOpts, retrieveuc.WithSearchTimeout(cfg.searchTimeout))
	}

	expandSvc := expanduc.New(generator, expandTmpl)
	retrieveSvc := retrieveuc.New(queryEmbedder, searchRepo, retrieveOpts...)
	composeSvc := composeuc.New(generator, answerTmpl)
	answerSvc := answeruc.New(expandSvc, retrieveSvc, composeSvc, cfg.numQueries, cfg.topK)
	ingestSvc := ingestuc.New(docRepo, docEmbedder, vectorCfg.Dimensions)

	return &Client{
		store:     store,
		answerSvc: answerSvc,
		ingestSvc: ingestSvc,
	}, nil
}

// buildEmbedders returns the document embedder and the decorated query
// embedder (cache, then instruction prefix outermost).
func buildEmbedders(cfg *clientConfig, store db.Store, logger *zap.Logger) (domain.Embedder, domain.Embedder) {
	var base domain.Embedder
	if cfg.embedder != nil {
		base = &embedderAdapter{inner: cfg.embedder}
	} else {
		base = openaiProvider.NewEmbedder(&openaiProvider.EmbedderConfig{
			APIKey:     cfg.openaiKey,
			BaseURL:    cfg.openaiBaseURL,
			Model:      cfg.embedModel,
			Dimensions: cfg.vectorDimensions,
			Provider:   "openai",
			Logger:     logger,
		})
	}

	query := base
	if cfg.embedCacheTTL > 0 {
		query = embcache.New(query, store, cfg.embedCacheTTL, metrics.EmbeddingCacheTotal, logger)
	}
	if cfg.queryInstruction != "" {
		query = domain.NewInstructionEmbedder(query, cfg.queryInstruction)
	}
	return base, query
}

func buildGenerator(cfg *clientConfig, logger *zap.Logger) domain.Generator {
	if cfg.generator != nil {
		return &generatorAdapter{inner: cfg.generator}
	}
	return openaiProvider.NewGenerator(&openaiProvider.GeneratorConfig{
		APIKey:      cfg.openaiKey,
		BaseURL:     cfg.openaiBaseURL,
		Model:       cfg.genModel,
		Temperature: cfg.temperature,
		MaxTokens:   cfg.maxTokens,
		Provider:    "openai",
		Logger:      logger,
	})
}

func parseTemplate(text string, required ...string) (*prompt.Template, error) {
	if text == "" {
		return nil, nil
	}
	tmpl, err := prompt.New(text, required...)
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ask runs the full pipeline for one question: expansion, per-query
// retrieval, merge, and answer composition.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	ctx, usage := domain.NewContextWithUsage(ctx)

	ans, err := c.answerSvc.Ask(ctx, domain.AskRequest{Question: question})
	if err != nil {
		return Answer{}, err
	}

	sources := make([]Document, 0, len(ans.Sources))
	for i := range ans.Sources {
		d := &ans.Sources[i]
		sources = append(sources, Document{
			ID:       d.ID(),
			Content:  d.Content(),
			Metadata: d.Metadata(),
		})
	}

	return Answer{
		Question: ans.Question,
		Text:     ans.Text,
		Queries:  ans.Queries,
		Sources:  sources,
		Usage: Usage{
			EmbeddingTokens:  usage.EmbeddingTokens(),
			GenerationTokens: usage.GenerationTokens(),
		},
	}, nil
}

// UpsertDocument vectorizes and stores a document. Returns true when the
// document was created, false when an existing one was replaced.
func (c *Client) UpsertDocument(ctx context.Context, id, content string, metadata map[string]string) (bool, error) {
	doc, err := domain.NewDocument(id, content, metadata)
	if err != nil {
		return false, err
	}
	return c.ingestSvc.Upsert(ctx, &doc)
}

// GetDocument fetches a stored document by ID.
func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	doc, err := c.ingestSvc.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	return Document{
		ID:       doc.ID(),
		Content:  doc.Content(),
		Metadata: doc.Metadata(),
	}, nil
}

// DeleteDocument removes a stored document by ID.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.ingestSvc.Delete(ctx, id)
}

// CountDocuments returns the number of indexed documents.
func (c *Client) CountDocuments(ctx context.Context) (int, error) {
	return c.ingestSvc.Count(ctx)
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps the public Generator to satisfy internal domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, p string) (domain.GenerationResult, error) {
	r, err := a.inner.Generate(ctx, p)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	return domain.GenerationResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
	}, nil
}
