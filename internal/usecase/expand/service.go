package expand

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/prompt"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Service turns one user question into several alternative phrasings.
type Service struct {
	gen  Generator
	tmpl *prompt.Template
}

// New creates a query expansion service.
// tmpl must contain the {question} and {num_queries} placeholders;
// pass nil to use the built-in template.
func New(gen Generator, tmpl *prompt.Template) *Service {
	if tmpl == nil {
		def := prompt.DefaultExpandTemplate()
		tmpl = &def
	}
	return &Service{gen: gen, tmpl: tmpl}
}

// Expand generates exactly n alternative phrasings of the question.
// A completion with fewer than n usable lines is a malformed generation;
// extra lines beyond n are discarded.
func (s *Service) Expand(ctx context.Context, question string, n int) ([]string, error) {
	if n <= 0 {
		n = domain.DefaultNumQueries
	}

	p, err := s.tmpl.Render(map[string]string{
		"question":    question,
		"num_queries": strconv.Itoa(n),
	})
	if err != nil {
		return nil, fmt.Errorf("render expand prompt: %w", err)
	}

	result, err := s.gen.Generate(ctx, p)
	if err != nil {
		metrics.ExpansionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("generate expansions: %w", err)
	}

	domain.UsageFromContext(ctx).AddGenerationTokens(result.TotalTokens)

	queries := parseQueries(result.Text)
	if len(queries) < n {
		metrics.ExpansionsTotal.WithLabelValues("malformed").Inc()
		return nil, domain.NewMalformedGeneration(n, len(queries))
	}

	metrics.ExpansionsTotal.WithLabelValues("success").Inc()
	return queries[:n], nil
}

// parseQueries splits completion text into usable query lines.
// Blank lines are dropped; list markers the model tends to emit are stripped.
func parseQueries(text string) []string {
	var queries []string
	for _, line := range strings.Split(text, "\n") {
		q := stripListMarker(strings.TrimSpace(line))
		if q == "" {
			continue
		}
		queries = append(queries, q)
	}
	return queries
}

// stripListMarker removes a leading "1.", "1)", "-", or "*" marker.
func stripListMarker(line string) string {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		return strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "* "); ok {
		return strings.TrimSpace(rest)
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}

	return line
}
