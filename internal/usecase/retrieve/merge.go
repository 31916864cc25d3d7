package retrieve

import (
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Merge flattens per-query results into one deduplicated document list.
//
// Documents keep first-seen order: result lists are walked in input order,
// matches within each list in rank order, and a document ID only counts
// the first time it appears.
func Merge(results []domain.RetrievalResult) []domain.Document {
	seen := make(map[string]struct{})
	var docs []domain.Document

	for _, r := range results {
		for _, m := range r.Matches() {
			if _, ok := seen[m.ID()]; ok {
				continue
			}
			seen[m.ID()] = struct{}{}
			docs = append(docs, m.Document())
		}
	}

	metrics.MergedDocuments.Observe(float64(len(docs)))
	return docs
}
