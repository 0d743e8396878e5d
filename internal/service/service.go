// Package service wires validation, admission, the model lifecycle and the
// generator into one request path shared by every transport.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/embedding"
	"embedd/internal/manager"
	"embedd/pkg/types"
)

const (
	StatusHealthy      = "healthy"
	StatusInitializing = "initializing"
)

// Lifecycle is the part of the manager the service depends on.
type Lifecycle interface {
	Acquire(ctx context.Context) (func(), error)
	EnsureLoaded(ctx context.Context) (*manager.Handle, error)
	Release()
	Info() manager.Info
	Ready() bool
}

// Config wires a Service.
type Config struct {
	Lifecycle Lifecycle
	Validator *embedding.Validator
	Generator *embedding.Generator
	Logger    zerolog.Logger
	// Clock returns the current time; time.Now when nil.
	Clock func() time.Time
}

// Service embeds text and reports health.
type Service struct {
	lc    Lifecycle
	val   *embedding.Validator
	gen   *embedding.Generator
	log   zerolog.Logger
	now   func() time.Time
	start time.Time

	mu       sync.Mutex
	requests uint64
	totalMS  int64
}

// New builds a Service from cfg.
func New(cfg Config) *Service {
	s := &Service{
		lc:  cfg.Lifecycle,
		val: cfg.Validator,
		gen: cfg.Generator,
		log: cfg.Logger,
		now: cfg.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.val == nil {
		s.val = embedding.NewValidator(0, cfg.Logger)
	}
	if s.gen == nil {
		s.gen = embedding.NewGenerator(0, cfg.Lifecycle, cfg.Logger)
	}
	s.start = s.now()
	return s
}

// Embed validates text, then loads the model if needed and generates its
// embedding. Validation runs before any model interaction.
func (s *Service) Embed(ctx context.Context, text any) (types.EmbedResponse, error) {
	start := s.now()
	clean, err := s.val.Validate(text)
	if err != nil {
		return types.EmbedResponse{}, err
	}
	release, err := s.lc.Acquire(ctx)
	if err != nil {
		return types.EmbedResponse{}, err
	}
	defer release()

	h, err := s.lc.EnsureLoaded(ctx)
	if err != nil {
		return types.EmbedResponse{}, err
	}
	vec, err := s.gen.Generate(ctx, clean, h)
	if err != nil {
		return types.EmbedResponse{}, err
	}
	elapsed := s.now().Sub(start)
	s.record(elapsed)
	return types.EmbedResponse{
		Embedding:        vec,
		ModelVersion:     h.ModelID,
		Dimension:        len(vec),
		ProcessingTimeMS: elapsed.Milliseconds(),
	}, nil
}

// Warm loads the model ahead of the first request.
func (s *Service) Warm(ctx context.Context) error {
	release, err := s.lc.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	_, err = s.lc.EnsureLoaded(ctx)
	return err
}

// record counts a successful request.
func (s *Service) record(elapsed time.Duration) {
	s.mu.Lock()
	s.requests++
	s.totalMS += elapsed.Milliseconds()
	s.mu.Unlock()
}

// Stats returns counters for successful requests since start.
func (s *Service) Stats() types.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := types.Statistics{RequestCount: s.requests}
	if s.requests > 0 {
		st.AverageProcessingTimeMS = s.totalMS / int64(s.requests)
	}
	return st
}

// Ready reports whether the model is loaded.
func (s *Service) Ready() bool { return s.lc.Ready() }

// Info returns the lifecycle snapshot in transport form.
func (s *Service) Info() types.ModelInfo { return ModelInfo(s.lc.Info()) }

// Health reports healthy once a model is loaded, initializing before.
func (s *Service) Health() types.HealthResponse {
	now := s.now()
	status := StatusInitializing
	if s.lc.Ready() {
		status = StatusHealthy
	}
	return types.HealthResponse{
		Status:        status,
		ModelInfo:     s.Info(),
		Statistics:    s.Stats(),
		UptimeSeconds: int64(now.Sub(s.start).Seconds()),
		Timestamp:     now.Unix(),
	}
}

// Shutdown releases the model.
func (s *Service) Shutdown() { s.lc.Release() }

// ModelInfo converts a manager snapshot for JSON output.
func ModelInfo(inf manager.Info) types.ModelInfo {
	out := types.ModelInfo{
		ModelName:       inf.ModelID,
		State:           string(inf.State),
		ModelLoaded:     inf.ModelLoaded,
		TokenizerLoaded: inf.TokenizerLoaded,
		MaxMemoryMB:     inf.MaxMemoryMB,
		TimeoutSeconds:  int64(inf.Timeout.Seconds()),
		MemoryRSSMB:     inf.MemoryRSSMB,
		LoadsTotal:      inf.LoadsTotal,
		ReleasesTotal:   inf.ReleasesTotal,
		LastError:       inf.LastError,
	}
	if !inf.LoadedAt.IsZero() {
		ts := inf.LoadedAt.Unix()
		out.LoadedAt = &ts
	}
	return out
}
