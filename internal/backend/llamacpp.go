//go:build llama

package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"embedd/internal/registry"
	"embedd/pkg/types"
)

// LlamaCppBuilt indicates this binary was compiled with in-process llama support.
const LlamaCppBuilt = true

// LlamaCpp runs models in-process through go-llama.cpp.
type LlamaCpp struct {
	registry []types.Model

	mu     sync.Mutex
	models map[string]*llama.LLama // key: artifact path
}

// NewLlamaCpp returns the in-process backend. Model ids resolve against reg.
func NewLlamaCpp(reg []types.Model) *LlamaCpp {
	return &LlamaCpp{registry: reg, models: make(map[string]*llama.LLama)}
}

func (b *LlamaCpp) Name() string { return "llamacpp" }

func (b *LlamaCpp) resolve(modelID string) (string, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return "", errors.New("model id is empty")
	}
	if mdl, ok := registry.Lookup(b.registry, id); ok {
		return mdl.Path, nil
	}
	return "", fmt.Errorf("model %q not found in registry", id)
}

// LoadTokenizer validates the artifact. Tokenization uses the vocabulary of
// the model loaded for the same artifact.
func (b *LlamaCpp) LoadTokenizer(ctx context.Context, modelID string) (Tokenizer, error) {
	path, err := b.resolve(modelID)
	if err != nil {
		return nil, err
	}
	if err := checkGGUF(path); err != nil {
		return nil, err
	}
	return &cppTokenizer{b: b, path: path}, nil
}

func (b *LlamaCpp) LoadModel(ctx context.Context, modelID string, opts LoadOptions) (Model, error) {
	path, err := b.resolve(modelID)
	if err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{llama.EnableEmbeddings}
	if opts.ContextSize > 0 {
		mo = append(mo, llama.SetContext(opts.ContextSize), llama.SetNBatch(opts.ContextSize))
	}
	if opts.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(opts.GPULayers))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		if isOOMMessage(err.Error()) {
			return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		return nil, err
	}
	b.mu.Lock()
	if old := b.models[path]; old != nil {
		old.Free()
	}
	b.models[path] = m
	b.mu.Unlock()
	return &cppModel{b: b, path: path, threads: opts.Threads}, nil
}

func (b *LlamaCpp) model(path string) *llama.LLama {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.models[path]
}

type cppTokenizer struct {
	b    *LlamaCpp
	path string
}

func (t *cppTokenizer) Tokenize(ctx context.Context, text string, maxTokens int) (Batch, error) {
	m := t.b.model(t.path)
	if m == nil {
		return Batch{}, errors.New("model not loaded")
	}
	_, toks, err := m.TokenizeString(text)
	if err != nil {
		return Batch{}, err
	}
	if len(toks) == 0 {
		return Batch{}, errors.New("tokenizer returned no tokens")
	}
	out, truncated := TruncateTokens(toks, maxTokens, true)
	return Batch{Tokens: out, Truncated: truncated}, nil
}

func (t *cppTokenizer) Close() error { return nil }

type cppModel struct {
	b       *LlamaCpp
	path    string
	threads int
}

func (m *cppModel) Warmup(ctx context.Context) error {
	if m.b.model(m.path) == nil {
		return errors.New("model not loaded")
	}
	_, err := m.Forward(ctx, Batch{Tokens: []int32{1}})
	return err
}

// Forward returns a single row: go-llama.cpp pools inside the runtime, and the
// mean of one row is the row itself.
func (m *cppModel) Forward(ctx context.Context, batch Batch) (HiddenStates, error) {
	lm := m.b.model(m.path)
	if lm == nil {
		return nil, errors.New("model not loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]int, len(batch.Tokens))
	for i, t := range batch.Tokens {
		ids[i] = int(t)
	}
	var po []llama.PredictOption
	if m.threads > 0 {
		po = append(po, llama.SetThreads(m.threads))
	}
	vec, err := lm.TokenEmbeddings(ids, po...)
	if err != nil {
		if isOOMMessage(err.Error()) {
			return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		return nil, err
	}
	return HiddenStates{vec}, nil
}

func (m *cppModel) Close() error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if lm := m.b.models[m.path]; lm != nil {
		lm.Free()
		delete(m.b.models, m.path)
	}
	return nil
}
