package expand

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// Generator produces chat completions.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.GenerationResult, error)
}
