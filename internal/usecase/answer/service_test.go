package answer

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type mockExpander struct {
	queries []string
	err     error
	gotN    int
}

func (m *mockExpander) Expand(_ context.Context, _ string, n int) ([]string, error) {
	m.gotN = n
	if m.err != nil {
		return nil, m.err
	}
	return m.queries, nil
}

type mockRetriever struct {
	results []domain.RetrievalResult
	err     error
	gotK    int
	gotQs   []string
}

func (m *mockRetriever) RetrieveAll(_ context.Context, queries []string, topK int) ([]domain.RetrievalResult, error) {
	m.gotQs = queries
	m.gotK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockComposer struct {
	text    string
	err     error
	gotDocs []domain.Document
}

func (m *mockComposer) Compose(_ context.Context, _ string, docs []domain.Document) (string, error) {
	m.gotDocs = docs
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func retrievalResult(query string, ids ...string) domain.RetrievalResult {
	matches := make([]domain.Match, 0, len(ids))
	for _, id := range ids {
		matches = append(matches, domain.NewMatch(id, 0.9, "content of "+id, nil))
	}
	return domain.NewRetrievalResult(query, matches)
}

func newTestService() (*Service, *mockExpander, *mockRetriever, *mockComposer) {
	exp := &mockExpander{queries: []string{"q1", "q2", "q3"}}
	ret := &mockRetriever{results: []domain.RetrievalResult{
		retrievalResult("q1", "a", "b"),
		retrievalResult("q2", "b", "c"),
		retrievalResult("q3"),
	}}
	comp := &mockComposer{text: "final answer"}
	return New(exp, ret, comp, 3, 3), exp, ret, comp
}

func TestAsk_FullPipeline(t *testing.T) {
	svc, _, ret, comp := newTestService()

	ans, err := svc.Ask(context.Background(), domain.AskRequest{Question: "tell me about X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ans.Question != "tell me about X" {
		t.Errorf("question = %q", ans.Question)
	}
	if ans.Text != "final answer" {
		t.Errorf("text = %q", ans.Text)
	}
	if len(ans.Queries) != 3 {
		t.Errorf("queries = %v", ans.Queries)
	}
	if len(ret.gotQs) != 3 {
		t.Errorf("retriever received %d queries", len(ret.gotQs))
	}
	// a, b, c with b deduplicated
	if len(ans.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(ans.Sources))
	}
	if len(comp.gotDocs) != 3 {
		t.Errorf("composer received %d docs", len(comp.gotDocs))
	}
	if ans.Sources[0].ID() != "a" || ans.Sources[1].ID() != "b" || ans.Sources[2].ID() != "c" {
		t.Errorf("source order = %v", []string{ans.Sources[0].ID(), ans.Sources[1].ID(), ans.Sources[2].ID()})
	}
}

func TestAsk_RequestOverridesDefaults(t *testing.T) {
	svc, exp, ret, _ := newTestService()

	_, err := svc.Ask(context.Background(), domain.AskRequest{Question: "q", NumQueries: 5, TopK: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.gotN != 5 {
		t.Errorf("numQueries = %d, want 5", exp.gotN)
	}
	if ret.gotK != 10 {
		t.Errorf("topK = %d, want 10", ret.gotK)
	}
}

func TestAsk_ZeroOverridesUseDefaults(t *testing.T) {
	svc, exp, ret, _ := newTestService()

	_, err := svc.Ask(context.Background(), domain.AskRequest{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.gotN != 3 {
		t.Errorf("numQueries = %d, want configured 3", exp.gotN)
	}
	if ret.gotK != 3 {
		t.Errorf("topK = %d, want configured 3", ret.gotK)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := svc.Ask(context.Background(), domain.AskRequest{}); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestAsk_ExpansionFailureAborts(t *testing.T) {
	svc, exp, _, _ := newTestService()
	exp.err = domain.NewMalformedGeneration(3, 1)

	_, err := svc.Ask(context.Background(), domain.AskRequest{Question: "q"})
	if !errors.Is(err, domain.ErrMalformedGeneration) {
		t.Errorf("expected ErrMalformedGeneration, got %v", err)
	}
}

func TestAsk_ComposeFailureAborts(t *testing.T) {
	svc, _, _, comp := newTestService()
	wantErr := errors.New("provider down")
	comp.err = wantErr

	_, err := svc.Ask(context.Background(), domain.AskRequest{Question: "q"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected compose error, got %v", err)
	}
}

func TestAsk_AllRetrievalsEmptyStillAnswers(t *testing.T) {
	svc, _, ret, comp := newTestService()
	ret.results = []domain.RetrievalResult{
		domain.EmptyRetrievalResult("q1"),
		domain.EmptyRetrievalResult("q2"),
		domain.EmptyRetrievalResult("q3"),
	}

	ans, err := svc.Ask(context.Background(), domain.AskRequest{Question: "q"})
	if err != nil {
		t.Fatalf("empty retrievals must not abort: %v", err)
	}
	if ans.Text != "final answer" {
		t.Errorf("text = %q", ans.Text)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("sources = %d, want 0", len(ans.Sources))
	}
	if comp.gotDocs != nil && len(comp.gotDocs) != 0 {
		t.Errorf("composer must receive empty docs, got %d", len(comp.gotDocs))
	}
}

func TestAsk_RetrieverCancellationPropagates(t *testing.T) {
	svc, _, ret, _ := newTestService()
	ret.err = domain.ErrCanceled

	_, err := svc.Ask(context.Background(), domain.AskRequest{Question: "q"})
	if !errors.Is(err, domain.ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
}

func TestAsk_CanceledContextMapsProviderError(t *testing.T) {
	svc, exp, _, _ := newTestService()
	exp.err = errors.New("request aborted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ask(ctx, domain.AskRequest{Question: "q"})
	if !errors.Is(err, domain.ErrCanceled) {
		t.Errorf("expected ErrCanceled for canceled context, got %v", err)
	}
}
