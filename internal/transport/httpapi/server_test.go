package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
)

// --- Mocks ---

type mockAsker struct {
	askFunc func(ctx context.Context, req domain.AskRequest) (domain.Answer, error)
}

func (m *mockAsker) Ask(ctx context.Context, req domain.AskRequest) (domain.Answer, error) {
	return m.askFunc(ctx, req)
}

type mockDocuments struct {
	upsertFunc func(ctx context.Context, doc *domain.Document) (bool, error)
	getFunc    func(ctx context.Context, id string) (domain.Document, error)
	deleteFunc func(ctx context.Context, id string) error
	countFunc  func(ctx context.Context) (int, error)
}

func (m *mockDocuments) Upsert(ctx context.Context, doc *domain.Document) (bool, error) {
	return m.upsertFunc(ctx, doc)
}

func (m *mockDocuments) Get(ctx context.Context, id string) (domain.Document, error) {
	return m.getFunc(ctx, id)
}

func (m *mockDocuments) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockDocuments) Count(ctx context.Context) (int, error) {
	return m.countFunc(ctx)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(asker Asker, docs DocumentService, hc HealthService) http.Handler {
	srv := NewServer(asker, docs, hc, zap.NewNop())
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// --- Ask ---

func TestAsk_Success(t *testing.T) {
	doc, _ := domain.NewDocument("doc-1", "hello world", map[string]string{"source": "wiki"})

	asker := &mockAsker{
		askFunc: func(ctx context.Context, req domain.AskRequest) (domain.Answer, error) {
			if req.Question != "what is up" {
				t.Errorf("unexpected question %q", req.Question)
			}
			if u := domain.UsageFromContext(ctx); u != nil {
				u.AddEmbeddingTokens(12)
				u.AddGenerationTokens(30)
			} else {
				t.Error("usage collector missing from context")
			}
			return domain.Answer{
				Question: req.Question,
				Text:     "not much",
				Queries:  []string{"q1", "q2", "q3"},
				Sources:  []domain.Document{doc},
			}, nil
		},
	}

	router := newTestRouter(asker, &mockDocuments{}, &mockHealth{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", askRequest{Question: "what is up"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[askResponse](t, rec)
	if resp.Answer != "not much" {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Queries) != 3 {
		t.Errorf("expected 3 queries, got %d", len(resp.Queries))
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "doc-1" {
		t.Errorf("unexpected sources %+v", resp.Sources)
	}
	if resp.Sources[0].Metadata["source"] != "wiki" {
		t.Errorf("metadata not carried through: %+v", resp.Sources[0].Metadata)
	}
	if resp.Usage.EmbeddingTokens != 12 || resp.Usage.GenerationTokens != 30 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
}

func TestAsk_PassesOverrides(t *testing.T) {
	var got domain.AskRequest
	asker := &mockAsker{
		askFunc: func(_ context.Context, req domain.AskRequest) (domain.Answer, error) {
			got = req
			return domain.Answer{}, nil
		},
	}

	router := newTestRouter(asker, &mockDocuments{}, &mockHealth{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", askRequest{Question: "q", NumQueries: 5, TopK: 10})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.NumQueries != 5 || got.TopK != 10 {
		t.Errorf("overrides not forwarded: %+v", got)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	router := newTestRouter(&mockAsker{}, &mockDocuments{}, &mockHealth{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", askRequest{Question: ""})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if resp.Code != codeValidationFailed {
		t.Errorf("expected code %q, got %q", codeValidationFailed, resp.Code)
	}
}

func TestAsk_InvalidBody(t *testing.T) {
	router := newTestRouter(&mockAsker{}, &mockDocuments{}, &mockHealth{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAsk_NegativeOverrides(t *testing.T) {
	router := newTestRouter(&mockAsker{}, &mockDocuments{}, &mockHealth{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", askRequest{Question: "q", TopK: -1})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed generation",
			err:        fmt.Errorf("expand: %w", domain.NewMalformedGeneration(3, 1)),
			wantStatus: http.StatusBadGateway,
			wantCode:   codeMalformedGeneration,
		},
		{
			name:       "canceled",
			err:        fmt.Errorf("%w: %w", domain.ErrCanceled, context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   codeCanceled,
		},
		{
			name:       "embedding provider",
			err:        fmt.Errorf("retrieve: %w", domain.ErrEmbeddingProviderError),
			wantStatus: http.StatusBadGateway,
			wantCode:   codeProviderError,
		},
		{
			name:       "generation provider",
			err:        fmt.Errorf("compose: %w", domain.ErrGenerationProviderError),
			wantStatus: http.StatusBadGateway,
			wantCode:   codeProviderError,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &mockAsker{
				askFunc: func(_ context.Context, _ domain.AskRequest) (domain.Answer, error) {
					return domain.Answer{}, tt.err
				},
			}
			router := newTestRouter(asker, &mockDocuments{}, &mockHealth{})
			rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", askRequest{Question: "q"})

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			resp := decodeBody[errorResponse](t, rec)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAsk_InternalErrorHidesDetails(t *testing.T) {
	asker := &mockAsker{
		askFunc: func(_ context.Context, _ domain.AskRequest) (domain.Answer, error) {
			return domain.Answer{}, errors.New("redis password hunter2 leaked")
		},
	}
	router := newTestRouter(asker, &mockDocuments{}, &mockHealth{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/ask", askRequest{Question: "q"})

	resp := decodeBody[errorResponse](t, rec)
	if resp.Message != "internal error" {
		t.Errorf("internal details leaked to client: %q", resp.Message)
	}
}

// --- Documents ---

func TestUpsertDocument_Created(t *testing.T) {
	docs := &mockDocuments{
		upsertFunc: func(_ context.Context, doc *domain.Document) (bool, error) {
			if doc.ID() != "doc-1" {
				t.Errorf("unexpected id %q", doc.ID())
			}
			if doc.Content() != "hello" {
				t.Errorf("unexpected content %q", doc.Content())
			}
			return true, nil
		},
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodPut, "/api/v1/documents/doc-1", upsertDocumentRequest{
		Content:  "hello",
		Metadata: map[string]string{"source": "wiki"},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v1/documents/doc-1" {
		t.Errorf("unexpected Location %q", loc)
	}
	resp := decodeBody[documentResponse](t, rec)
	if resp.ID != "doc-1" || resp.Content != "hello" {
		t.Errorf("unexpected body %+v", resp)
	}
}

func TestUpsertDocument_Updated(t *testing.T) {
	docs := &mockDocuments{
		upsertFunc: func(_ context.Context, _ *domain.Document) (bool, error) {
			return false, nil
		},
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodPut, "/api/v1/documents/doc-1", upsertDocumentRequest{Content: "hello"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUpsertDocument_DimMismatch(t *testing.T) {
	docs := &mockDocuments{
		upsertFunc: func(_ context.Context, _ *domain.Document) (bool, error) {
			return false, fmt.Errorf("ingest: %w", domain.ErrVectorDimMismatch)
		},
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodPut, "/api/v1/documents/doc-1", upsertDocumentRequest{Content: "hello"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if resp.Code != codeVectorDimMismatch {
		t.Errorf("expected code %q, got %q", codeVectorDimMismatch, resp.Code)
	}
}

func TestGetDocument_Success(t *testing.T) {
	doc, _ := domain.NewDocument("doc-1", "hello", map[string]string{"source": "wiki"})
	docs := &mockDocuments{
		getFunc: func(_ context.Context, id string) (domain.Document, error) {
			if id != "doc-1" {
				t.Errorf("unexpected id %q", id)
			}
			return doc, nil
		},
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodGet, "/api/v1/documents/doc-1", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[documentResponse](t, rec)
	if resp.Content != "hello" || resp.Metadata["source"] != "wiki" {
		t.Errorf("unexpected body %+v", resp)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	docs := &mockDocuments{
		getFunc: func(_ context.Context, _ string) (domain.Document, error) {
			return domain.Document{}, fmt.Errorf("get: %w", domain.ErrDocumentNotFound)
		},
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodGet, "/api/v1/documents/missing", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if resp.Code != codeDocumentNotFound {
		t.Errorf("expected code %q, got %q", codeDocumentNotFound, resp.Code)
	}
}

func TestDeleteDocument_Success(t *testing.T) {
	var deleted string
	docs := &mockDocuments{
		deleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodDelete, "/api/v1/documents/doc-1", nil)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deleted != "doc-1" {
		t.Errorf("expected doc-1 deleted, got %q", deleted)
	}
}

func TestDeleteDocument_NotFound(t *testing.T) {
	docs := &mockDocuments{
		deleteFunc: func(_ context.Context, _ string) error {
			return fmt.Errorf("delete: %w", domain.ErrDocumentNotFound)
		},
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodDelete, "/api/v1/documents/missing", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCountDocuments(t *testing.T) {
	docs := &mockDocuments{
		countFunc: func(_ context.Context) (int, error) { return 42, nil },
	}
	router := newTestRouter(&mockAsker{}, docs, &mockHealth{})
	rec := doJSON(t, router, http.MethodGet, "/api/v1/documents/count", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[countResponse](t, rec)
	if resp.Count != 42 {
		t.Errorf("expected count 42, got %d", resp.Count)
	}
}

// --- Health ---

func TestHealthCheck_Healthy(t *testing.T) {
	hc := &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{
			"database":   healthuc.CheckOK,
			"embedding":  healthuc.CheckOK,
			"generation": healthuc.CheckOK,
		},
	}}
	router := newTestRouter(&mockAsker{}, &mockDocuments{}, hc)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[healthResponse](t, rec)
	if resp.Status != "ok" {
		t.Errorf("expected ok, got %q", resp.Status)
	}
	if resp.Checks["database"] != "ok" {
		t.Errorf("unexpected checks %+v", resp.Checks)
	}
}

func TestHealthCheck_Degraded(t *testing.T) {
	hc := &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"database":  healthuc.CheckError,
			"embedding": healthuc.CheckOK,
		},
	}}
	router := newTestRouter(&mockAsker{}, &mockDocuments{}, hc)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	resp := decodeBody[healthResponse](t, rec)
	if resp.Status != "degraded" {
		t.Errorf("expected degraded, got %q", resp.Status)
	}
	if resp.Checks["database"] != "error" {
		t.Errorf("unexpected checks %+v", resp.Checks)
	}
}
