package domain

// AskRequest carries a single question through the pipeline.
// NumQueries and TopK override the configured defaults when positive.
type AskRequest struct {
	Question   string
	NumQueries int
	TopK       int
}

// Answer is the outcome of one question-answering invocation.
// Not persisted: every invocation is independent.
type Answer struct {
	Question string
	Text     string
	Queries  []string   // expanded queries, in generation order
	Sources  []Document // merged unique documents fed into generation
}
