package httpapi

// Error codes returned to clients.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeDocumentNotFound    = "document_not_found"
	codeVectorDimMismatch   = "vector_dim_mismatch"
	codeMalformedGeneration = "malformed_generation"
	codeProviderError       = "provider_error"
	codeCanceled            = "canceled"
	codeInternalError       = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// askRequest is the POST /ask body.
type askRequest struct {
	Question   string `json:"question"`
	NumQueries int    `json:"num_queries,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// askResponse is the POST /ask reply.
type askResponse struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Queries  []string         `json:"queries"`
	Sources  []sourceResponse `json:"sources"`
	Usage    usageResponse    `json:"usage"`
}

// sourceResponse is one merged source document in an ask reply.
type sourceResponse struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// usageResponse reports provider token usage for one invocation.
type usageResponse struct {
	EmbeddingTokens  int `json:"embedding_tokens"`
	GenerationTokens int `json:"generation_tokens"`
}

// upsertDocumentRequest is the PUT /documents/{id} body.
type upsertDocumentRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// documentResponse is a stored document.
type documentResponse struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// countResponse is the GET /documents/count reply.
type countResponse struct {
	Count int `json:"count"`
}

// healthResponse is the GET /health reply.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
