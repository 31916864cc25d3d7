package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
)

// Asker answers questions grounded in the corpus.
type Asker interface {
	Ask(ctx context.Context, req domain.AskRequest) (domain.Answer, error)
}

// DocumentService manages the corpus.
type DocumentService interface {
	Upsert(ctx context.Context, doc *domain.Document) (bool, error)
	Get(ctx context.Context, id string) (domain.Document, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the hand-written chi HTTP API.
type Server struct {
	asker         Asker
	documents     DocumentService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(asker Asker, documents DocumentService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		asker:     asker,
		documents: documents,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCanceled, http.StatusGatewayTimeout, codeCanceled),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrMalformedGeneration, http.StatusBadGateway, codeMalformedGeneration),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// RegisterRoutes mounts API routes on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.Ask)
		r.Get("/documents/count", s.CountDocuments)
		r.Put("/documents/{id}", s.UpsertDocument)
		r.Get("/documents/{id}", s.GetDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
	})
}

// Ask handles POST /api/v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}
	if req.NumQueries < 0 || req.TopK < 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "num_queries and top_k must not be negative")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.asker.Ask(ctx, domain.AskRequest{
		Question:   req.Question,
		NumQueries: req.NumQueries,
		TopK:       req.TopK,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToResponse(ans, usage))
}

// UpsertDocument handles PUT /api/v1/documents/{id}.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req upsertDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, err := domain.NewDocument(id, req.Content, req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	created, err := s.documents.Upsert(r.Context(), &doc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("/api/v1/documents/%s", id))
	}
	writeJSON(w, status, documentToResponse(&doc))
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.documents.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CountDocuments handles GET /api/v1/documents/count.
func (s *Server) CountDocuments(w http.ResponseWriter, r *http.Request) {
	n, err := s.documents.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func answerToResponse(ans domain.Answer, usage *domain.Usage) askResponse {
	sources := make([]sourceResponse, 0, len(ans.Sources))
	for i := range ans.Sources {
		d := &ans.Sources[i]
		sources = append(sources, sourceResponse{
			ID:       d.ID(),
			Content:  d.Content(),
			Metadata: d.Metadata(),
		})
	}

	return askResponse{
		Question: ans.Question,
		Answer:   ans.Text,
		Queries:  ans.Queries,
		Sources:  sources,
		Usage: usageResponse{
			EmbeddingTokens:  usage.EmbeddingTokens(),
			GenerationTokens: usage.GenerationTokens(),
		},
	}
}

func documentToResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:       doc.ID(),
		Content:  doc.Content(),
		Metadata: doc.Metadata(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var malformed *domain.MalformedGenerationError
	if errors.As(err, &malformed) {
		return malformed.Error()
	}

	sentinels := []error{
		domain.ErrCanceled,
		domain.ErrDocumentNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrMalformedGeneration,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
