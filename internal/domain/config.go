package domain

// KeyPrefix namespaces all ragpipe keys in the database.
const KeyPrefix = "ragpipe:"

// DocKeyPrefix is the key prefix for stored documents.
const DocKeyPrefix = KeyPrefix + "doc:"

// IndexName is the FT index over the document corpus.
const IndexName = KeyPrefix + "doc:idx"

// Pipeline defaults.
const (
	// DefaultNumQueries is the number of alternative phrasings generated per question.
	DefaultNumQueries = 3
	// DefaultTopK is the number of matches requested per expanded query.
	DefaultTopK = 3
)

// VectorConfig holds vector index parameters.
type VectorConfig struct {
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// DefaultVectorConfig returns the default vector parameters
// (1536 matches text-embedding-3-small).
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{Dimensions: 1536, HNSWM: 32, HNSWEFConstruct: 400}
}
