// Package embedding turns validated text into a unit-length vector using a
// loaded model handle: tokenize, forward pass, mean pool, L2 normalise.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
	"embedd/internal/manager"
)

// DefaultMaxTokens is the token cap applied when none is configured.
const DefaultMaxTokens = 512

const unitTolerance = 1e-5

// Releaser drops the loaded model. The lifecycle manager implements it.
type Releaser interface {
	Release()
}

// Generator produces embeddings from a handle.
type Generator struct {
	MaxTokens int
	Releaser  Releaser
	Logger    zerolog.Logger
}

// NewGenerator returns a generator that releases through rel on memory exhaustion.
func NewGenerator(maxTokens int, rel Releaser, log zerolog.Logger) *Generator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{MaxTokens: maxTokens, Releaser: rel, Logger: log.With().Str("component", "generator").Logger()}
}

// Generate embeds text with the handle's tokenizer and model.
func (g *Generator) Generate(ctx context.Context, text string, h *manager.Handle) ([]float32, error) {
	if h == nil || h.Tokenizer == nil || h.Model == nil {
		return nil, manager.NewEmbeddingError("Embedding generation failed", errors.New("model handle is not loaded"))
	}
	start := time.Now()

	batch, err := g.tokenize(ctx, h, text)
	if err != nil {
		if interrupted(ctx, err) {
			return nil, err
		}
		if backend.IsResourceExhausted(err) {
			return nil, g.exhausted(h, err)
		}
		return nil, manager.NewValidationError(fmt.Sprintf("Text tokenization failed: %v", err))
	}
	tokensPerRequest.Observe(float64(len(batch.Tokens)))
	if batch.Truncated {
		truncatedTotal.Inc()
		g.Logger.Debug().Int("max_tokens", g.MaxTokens).Msg("token sequence truncated")
	}

	states, err := g.forward(ctx, h, batch)
	if err != nil {
		if interrupted(ctx, err) {
			return nil, err
		}
		if backend.IsResourceExhausted(err) {
			return nil, g.exhausted(h, err)
		}
		forwardErrors.Inc()
		return nil, manager.NewEmbeddingError("Embedding generation failed", err)
	}

	vec, err := MeanPool(states)
	if err != nil {
		return nil, manager.NewEmbeddingError("Generated embedding is invalid", err)
	}
	if err := Normalize(vec); err != nil {
		return nil, manager.NewEmbeddingError("Generated embedding is invalid", err)
	}
	if err := checkUnit(vec, unitTolerance); err != nil {
		return nil, manager.NewEmbeddingError("Generated embedding is invalid", err)
	}
	generateDuration.Observe(time.Since(start).Seconds())
	return vec, nil
}

// interrupted reports whether err comes from the caller giving up rather than
// from the text or the model. Such errors pass through unclassified.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// exhausted releases the model so the next request loads a fresh one.
func (g *Generator) exhausted(h *manager.Handle, err error) error {
	oomTotal.Inc()
	g.Logger.Error().Str("event", "resource_exhausted").Str("model", h.ModelID).Err(err).Msg("memory exhausted during embedding, releasing model")
	if g.Releaser != nil {
		g.Releaser.Release()
	}
	return manager.NewEmbeddingError("GPU memory exhausted during embedding generation", err)
}

func (g *Generator) tokenize(ctx context.Context, h *manager.Handle, text string) (b backend.Batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	return h.Tokenizer.Tokenize(ctx, text, g.MaxTokens)
}

func (g *Generator) forward(ctx context.Context, h *manager.Handle, b backend.Batch) (hs backend.HiddenStates, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("forward panic: %v", r)
		}
	}()
	return h.Model.Forward(ctx, b)
}
