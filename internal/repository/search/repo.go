package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/retrieve.Searcher.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKNN performs a KNN (vector similarity) search over the document corpus.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	q := &db.KNNQuery{
		IndexName: domain.IndexName,
		Vector:    vector,
		K:         topK,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	return parseKNNResults(sr), nil
}

// parseKNNResults converts db.SearchResult into []domain.Match.
func parseKNNResults(sr *db.SearchResult) []domain.Match {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docID := strings.TrimPrefix(entry.Key, domain.DocKeyPrefix)
		matches = append(matches, parseEntryFields(docID, entry))
	}
	return matches
}

// parseEntryFields parses a KNN entry from flat hash fields.
// Reserved "__" fields carry content and the stored vector; everything else is metadata.
func parseEntryFields(docID string, entry db.SearchEntry) domain.Match {
	var content string
	metadata := make(map[string]string)

	for k, v := range entry.Fields {
		switch {
		case k == "__content":
			content = v
		case strings.HasPrefix(k, "__"):
			// __vector and other reserved fields are not surfaced in matches
		default:
			metadata[k] = v
		}
	}

	return domain.NewMatch(docID, entry.Score, content, metadata)
}
