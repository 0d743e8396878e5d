// Package backendtest provides a deterministic in-memory backend for tests.
package backendtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"embedd/internal/backend"
)

// DefaultDim matches the hidden size of the MiniLM family.
const DefaultDim = 384

// Backend is a fake backend.Backend. Fields ending in Err are returned by the
// matching call when set. Counters are safe for concurrent use.
type Backend struct {
	Dim int

	LoadTokenizerErr error
	LoadModelErr     error
	WarmupErr        error
	TokenizeErr      error
	ForwardErr       error
	// ForwardHook, when set, runs before every forward pass; a non-nil error
	// is returned as the forward error.
	ForwardHook  func(call int) error
	PanicForward bool

	mu              sync.Mutex
	tokenizerLoads  int
	modelLoads      int
	tokenizerCloses int
	modelCloses     int
	forwardCalls    int
	live            int
	lastText        string
	lastBatch       backend.Batch
}

// New returns a fake backend producing DefaultDim vectors.
func New() *Backend { return &Backend{Dim: DefaultDim} }

// ErrOOM is a resource exhaustion error in the shape a real runtime produces.
var ErrOOM = errors.Join(backend.ErrResourceExhausted, errors.New("CUDA error: out of memory"))

func (b *Backend) Name() string { return "fake" }

func (b *Backend) LoadTokenizer(ctx context.Context, modelID string) (backend.Tokenizer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.LoadTokenizerErr != nil {
		return nil, b.LoadTokenizerErr
	}
	b.tokenizerLoads++
	return &tokenizer{b: b}, nil
}

func (b *Backend) LoadModel(ctx context.Context, modelID string, opts backend.LoadOptions) (backend.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.LoadModelErr != nil {
		return nil, b.LoadModelErr
	}
	b.modelLoads++
	b.live++
	return &model{b: b}, nil
}

// Stats is a snapshot of the fake's counters.
type Stats struct {
	TokenizerLoads  int
	ModelLoads      int
	TokenizerCloses int
	ModelCloses     int
	ForwardCalls    int
	// Live is the number of models loaded and not yet closed.
	Live int
}

func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		TokenizerLoads:  b.tokenizerLoads,
		ModelLoads:      b.modelLoads,
		TokenizerCloses: b.tokenizerCloses,
		ModelCloses:     b.modelCloses,
		ForwardCalls:    b.forwardCalls,
		Live:            b.live,
	}
}

// LastText returns the text most recently passed to Tokenize.
func (b *Backend) LastText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastText
}

// LastBatch returns the batch most recently passed to Forward.
func (b *Backend) LastBatch() backend.Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBatch
}

// SetLoadModelErr changes LoadModelErr under the lock.
func (b *Backend) SetLoadModelErr(err error) {
	b.mu.Lock()
	b.LoadModelErr = err
	b.mu.Unlock()
}

// SetForwardErr changes ForwardErr under the lock.
func (b *Backend) SetForwardErr(err error) {
	b.mu.Lock()
	b.ForwardErr = err
	b.mu.Unlock()
}

type tokenizer struct {
	b      *Backend
	closed bool
}

// Tokenize emits 101, one id per whitespace separated word, then 102.
func (t *tokenizer) Tokenize(ctx context.Context, text string, maxTokens int) (backend.Batch, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.lastText = text
	if t.b.TokenizeErr != nil {
		return backend.Batch{}, t.b.TokenizeErr
	}
	if t.closed {
		return backend.Batch{}, errors.New("tokenizer closed")
	}
	toks := []int32{101}
	for _, w := range strings.Fields(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		toks = append(toks, int32(h.Sum32()%30000)+1000)
	}
	toks = append(toks, 102)
	out, truncated := backend.TruncateTokens(toks, maxTokens, true)
	return backend.Batch{Tokens: out, Truncated: truncated}, nil
}

func (t *tokenizer) Close() error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.b.tokenizerCloses++
	}
	return nil
}

type model struct {
	b      *Backend
	closed bool
}

func (m *model) Warmup(ctx context.Context) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return m.b.WarmupErr
}

// Forward returns one deterministic row per token with strictly positive
// entries, so the mean is never the zero vector.
func (m *model) Forward(ctx context.Context, batch backend.Batch) (backend.HiddenStates, error) {
	m.b.mu.Lock()
	m.b.forwardCalls++
	call := m.b.forwardCalls
	m.b.lastBatch = batch
	hook, ferr, panicky, closed := m.b.ForwardHook, m.b.ForwardErr, m.b.PanicForward, m.closed
	dim := m.b.Dim
	m.b.mu.Unlock()

	if panicky {
		panic("fake backend panic")
	}
	if closed {
		return nil, errors.New("model closed")
	}
	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}
	if ferr != nil {
		return nil, ferr
	}
	if dim <= 0 {
		dim = DefaultDim
	}
	rows := make(backend.HiddenStates, len(batch.Tokens))
	for i, tok := range batch.Tokens {
		row := make([]float32, dim)
		for j := range row {
			row[j] = float32((int(tok)*31+j*17)%97+1) / 97
		}
		rows[i] = row
	}
	return rows, nil
}

func (m *model) Close() error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.b.modelCloses++
		m.b.live--
	}
	return nil
}
