package ragpipe

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	openaiKey     string
	openaiBaseURL string
	embedModel    string
	genModel      string
	temperature   float32
	maxTokens     int

	embedder  Embedder
	generator Generator

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	numQueries    int
	topK          int
	concurrency   int
	searchTimeout time.Duration

	queryInstruction string
	embedCacheTTL    time.Duration

	expandTemplate string
	answerTemplate string

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisAuth sets the Redis ACL username and logical database.
func WithRedisAuth(username string, db int) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.db = db
	})
}

// WithOpenAI configures both providers to use the OpenAI API with the
// given key. Models default to text-embedding-3-small and gpt-4o-mini.
func WithOpenAI(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiKey = apiKey
	})
}

// WithOpenAIBaseURL points the providers at an OpenAI-compatible endpoint.
func WithOpenAIBaseURL(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiBaseURL = baseURL
	})
}

// WithEmbeddingModel sets the embedding model and its vector dimensions.
func WithEmbeddingModel(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedModel = model
		c.vectorDimensions = dimensions
	})
}

// WithGenerationModel sets the chat completion model.
func WithGenerationModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.genModel = model
	})
}

// WithTemperature sets the generation sampling temperature.
func WithTemperature(t float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = t
	})
}

// WithMaxTokens caps completion length. 0 uses the provider default.
func WithMaxTokens(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTokens = n
	})
}

// WithEmbedder sets a custom embedding provider instead of OpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets a custom text generation provider instead of OpenAI.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithVectorDimensions sets the vector dimension for the document index.
// Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithNumQueries sets how many alternative queries expansion produces.
// Default: 3.
func WithNumQueries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.numQueries = n
	})
}

// WithTopK sets how many nearest documents each query retrieves.
// Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithConcurrency bounds parallel per-query retrieval. 0 runs sequentially.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithSearchTimeout bounds each per-query vector search. A timed-out
// search degrades to an empty result instead of failing the invocation.
func WithSearchTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchTimeout = d
	})
}

// WithQueryInstruction prepends instruction text to queries before
// embedding. Some models want a prefix on queries but not on documents.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithEmbeddingCacheTTL caches query embeddings in Redis with the given
// TTL. Zero disables the cache (default).
func WithEmbeddingCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedCacheTTL = ttl
	})
}

// WithTemplates overrides the expansion and answer prompt templates.
// The expansion template needs {question} and {num_queries} placeholders,
// the answer template needs {question} and {context}. Empty strings keep
// the built-in defaults.
func WithTemplates(expand, answer string) Option {
	return optionFunc(func(c *clientConfig) {
		c.expandTemplate = expand
		c.answerTemplate = answer
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
