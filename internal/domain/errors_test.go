package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMalformedGenerationError(t *testing.T) {
	err := NewMalformedGeneration(3, 1)

	if !errors.Is(err, ErrMalformedGeneration) {
		t.Error("expected errors.Is(err, ErrMalformedGeneration)")
	}

	var mge *MalformedGenerationError
	if !errors.As(err, &mge) {
		t.Fatal("expected errors.As to MalformedGenerationError")
	}
	if mge.Want != 3 || mge.Got != 1 {
		t.Errorf("Want=%d Got=%d", mge.Want, mge.Got)
	}
	if !strings.Contains(err.Error(), "wanted 3") || !strings.Contains(err.Error(), "found 1") {
		t.Errorf("error message should carry counts: %q", err.Error())
	}
}

func TestUsage_NilSafe(t *testing.T) {
	var u *Usage
	u.AddEmbeddingTokens(10)  // must not panic
	u.AddGenerationTokens(10) // must not panic

	if u.EmbeddingTokens() != 0 || u.GenerationTokens() != 0 {
		t.Error("nil usage must read as zero")
	}
	if UsageFromContext(context.Background()) != nil {
		t.Error("expected nil usage from bare context")
	}
}

func TestUsage_Context(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())

	UsageFromContext(ctx).AddEmbeddingTokens(5)
	UsageFromContext(ctx).AddGenerationTokens(7)

	if u.EmbeddingTokens() != 5 || u.GenerationTokens() != 7 {
		t.Errorf("usage = %d/%d", u.EmbeddingTokens(), u.GenerationTokens())
	}
}
