// Package backend is the boundary to the pretrained-model runtime. A Backend
// loads a tokenizer and a model for a model identifier; the tokenizer turns
// text into a token Batch and the model turns a Batch into per-token hidden
// states. Pooling and normalisation happen above this package.
//
// Implementations:
//
//   - llama-server (default): a llama.cpp server subprocess in embedding mode
//     with pooling disabled, so hidden states are returned per token.
//   - llamacpp: in-process go-llama.cpp, compiled with `-tags=llama`. Without
//     the tag a stub reports ErrUnavailable.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrResourceExhausted marks failures caused by the runtime running out of
	// host or accelerator memory. Callers release the model when they see it.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrUnavailable marks a runtime that is not present in this build or host.
	ErrUnavailable = errors.New("runtime unavailable")
)

// Batch is one tokenized sequence.
type Batch struct {
	Tokens []int32
	// Truncated is set when the sequence was cut to the maximum token length.
	Truncated bool
}

// HiddenStates holds one vector per token, in token order.
type HiddenStates [][]float32

// LoadOptions are runtime knobs applied when a model is loaded.
type LoadOptions struct {
	ContextSize int
	Threads     int
	GPULayers   int
}

// Tokenizer converts text into token ids.
type Tokenizer interface {
	// Tokenize returns at most maxTokens ids for text.
	Tokenize(ctx context.Context, text string, maxTokens int) (Batch, error)
	Close() error
}

// Model runs the forward pass.
type Model interface {
	// Warmup puts the model in inference-only mode and checks it can serve.
	Warmup(ctx context.Context) error
	// Forward returns per-token hidden states for batch.
	Forward(ctx context.Context, batch Batch) (HiddenStates, error)
	// Close frees host and accelerator memory held by the model.
	Close() error
}

// Backend loads tokenizers and models by identifier.
type Backend interface {
	Name() string
	LoadTokenizer(ctx context.Context, modelID string) (Tokenizer, error)
	LoadModel(ctx context.Context, modelID string, opts LoadOptions) (Model, error)
}

// Process is implemented by models that live in a separate OS process, so
// memory accounting can include it.
type Process interface {
	PID() int
}

// IsResourceExhausted reports whether err was caused by memory exhaustion.
func IsResourceExhausted(err error) bool { return errors.Is(err, ErrResourceExhausted) }

// TruncateTokens cuts tokens to maxTokens. With keepLast the final token
// (the trailing separator added by BERT-style tokenizers) is preserved.
func TruncateTokens(tokens []int32, maxTokens int, keepLast bool) ([]int32, bool) {
	if maxTokens <= 0 || len(tokens) <= maxTokens {
		return tokens, false
	}
	out := make([]int32, maxTokens)
	if keepLast && maxTokens >= 2 {
		copy(out, tokens[:maxTokens-1])
		out[maxTokens-1] = tokens[len(tokens)-1]
		return out, true
	}
	copy(out, tokens[:maxTokens])
	return out, true
}
