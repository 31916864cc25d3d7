package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/prompt"
)

// contextDelimiter separates document blocks in the answer prompt.
const contextDelimiter = "\n\n---\n\n"

// Service grounds an answer in the retrieved context.
type Service struct {
	gen  Generator
	tmpl *prompt.Template
}

// New creates an answer composition service.
// tmpl must contain the {context} and {question} placeholders;
// pass nil to use the built-in template.
func New(gen Generator, tmpl *prompt.Template) *Service {
	if tmpl == nil {
		def := prompt.DefaultAnswerTemplate()
		tmpl = &def
	}
	return &Service{gen: gen, tmpl: tmpl}
}

// Compose renders the answer prompt from the question and documents and
// generates the final answer. An empty document list still generates:
// the template instructs the model to admit when the context is insufficient.
func (s *Service) Compose(ctx context.Context, question string, docs []domain.Document) (string, error) {
	p, err := s.tmpl.Render(map[string]string{
		"context":  buildContextBlock(docs),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("render answer prompt: %w", err)
	}

	result, err := s.gen.Generate(ctx, p)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	domain.UsageFromContext(ctx).AddGenerationTokens(result.TotalTokens)

	return result.Text, nil
}

// buildContextBlock joins document contents with the delimiter, in merge order.
func buildContextBlock(docs []domain.Document) string {
	if len(docs) == 0 {
		return ""
	}
	contents := make([]string, 0, len(docs))
	for i := range docs {
		contents = append(contents, docs[i].Content())
	}
	return strings.Join(contents, contextDelimiter)
}
