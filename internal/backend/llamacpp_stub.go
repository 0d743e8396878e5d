//go:build !llama

package backend

// No-CGO stub for the in-process backend, compiled when the 'llama' build tag
// is not set. The real implementation lives in llamacpp.go.

import (
	"context"
	"fmt"

	"embedd/pkg/types"
)

// LlamaCppBuilt indicates this binary was compiled with in-process llama support.
const LlamaCppBuilt = false

type LlamaCpp struct{}

func NewLlamaCpp(reg []types.Model) *LlamaCpp { return &LlamaCpp{} }

func (b *LlamaCpp) Name() string { return "llamacpp" }

func (b *LlamaCpp) LoadTokenizer(ctx context.Context, modelID string) (Tokenizer, error) {
	return nil, fmt.Errorf("%w: llamacpp support not built (missing 'llama' build tag)", ErrUnavailable)
}

func (b *LlamaCpp) LoadModel(ctx context.Context, modelID string, opts LoadOptions) (Model, error) {
	return nil, fmt.Errorf("%w: llamacpp support not built (missing 'llama' build tag)", ErrUnavailable)
}
