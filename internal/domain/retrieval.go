package domain

// Match is a single similarity-search hit for one expanded query.
type Match struct {
	id       string
	score    float64
	content  string
	metadata map[string]string
}

// NewMatch creates a search match.
func NewMatch(id string, score float64, content string, metadata map[string]string) Match {
	return Match{id: id, score: score, content: content, metadata: metadata}
}

// ID returns the document identifier.
func (m *Match) ID() string { return m.id }

// Score returns the relevance score (higher is more relevant).
func (m *Match) Score() float64 { return m.score }

// Content returns the document content.
func (m *Match) Content() string { return m.content }

// Metadata returns the document metadata fields.
func (m *Match) Metadata() map[string]string { return m.metadata }

// Document converts the match into a Document.
func (m *Match) Document() Document {
	return ReconstructDocument(m.id, m.content, m.metadata, nil)
}

// RetrievalResult is the ranked match list returned by one similarity
// search for one expanded query. An empty match list is a valid result:
// the Multi-Retriever degrades failed sub-queries to empty results.
type RetrievalResult struct {
	query   string
	matches []Match
}

// NewRetrievalResult creates a retrieval result for a query.
func NewRetrievalResult(query string, matches []Match) RetrievalResult {
	return RetrievalResult{query: query, matches: matches}
}

// EmptyRetrievalResult creates a result with no matches (failed or barren sub-query).
func EmptyRetrievalResult(query string) RetrievalResult {
	return RetrievalResult{query: query}
}

// Query returns the expanded query this result belongs to.
func (r *RetrievalResult) Query() string { return r.query }

// Matches returns the ranked matches (descending relevance).
func (r *RetrievalResult) Matches() []Match { return r.matches }

// IsEmpty reports whether the search produced no matches.
func (r *RetrievalResult) IsEmpty() bool { return len(r.matches) == 0 }
