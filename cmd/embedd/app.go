package main

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
	"embedd/internal/config"
	"embedd/internal/embedding"
	"embedd/internal/manager"
	"embedd/internal/registry"
	"embedd/internal/service"
	"embedd/pkg/types"
)

// app is the wired service graph shared by every subcommand.
type app struct {
	svc      *service.Service
	registry []types.Model
	backend  string
	stop     func()
}

// newBackend selects the inference backend. Replaced in tests.
var newBackend = func(cfg config.Config, reg []types.Model, log zerolog.Logger) (backend.Backend, func(), error) {
	switch cfg.Backend {
	case "llamacpp":
		if !backend.LlamaCppBuilt {
			return nil, nil, errors.New("backend llamacpp requires a build with -tags=llama")
		}
		return backend.NewLlamaCpp(reg), func() {}, nil
	default:
		ls := backend.NewLlamaServer(backend.LlamaServerConfig{
			Bin:          cfg.LlamaBin,
			Host:         cfg.LlamaHost,
			HFFile:       cfg.LlamaHFFile,
			Registry:     reg,
			ReadyTimeout: time.Duration(cfg.LoadTimeoutSeconds) * time.Second,
			Logger:       log,
		})
		return ls, ls.StopAll, nil
	}
}

func buildApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		// Hub ids and explicit .gguf paths still resolve without a registry.
		log.Warn().Str("models_dir", cfg.ModelsDir).Err(err).Msg("model registry unavailable")
		reg = nil
	}
	b, stop, err := newBackend(cfg, reg, log)
	if err != nil {
		return nil, err
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Backend:     b,
		ModelID:     cfg.ModelName,
		MaxMemoryMB: cfg.MaxMemoryMB,
		Timeout:     time.Duration(cfg.ModelTimeoutSeconds) * time.Second,
		LoadTimeout: time.Duration(cfg.LoadTimeoutSeconds) * time.Second,
		LoadOptions: backend.LoadOptions{
			ContextSize: cfg.LlamaCtx,
			Threads:     cfg.LlamaThreads,
			GPULayers:   cfg.LlamaGPULayers,
		},
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSeconds) * time.Second,
		Logger:        log,
	})
	svc := service.New(service.Config{
		Lifecycle: mgr,
		Validator: embedding.NewValidator(cfg.MaxTextLength, log),
		Generator: embedding.NewGenerator(cfg.MaxTokenLength, mgr, log),
		Logger:    log,
	})
	log.Info().
		Str("model", cfg.ModelName).
		Str("backend", b.Name()).
		Int("registry_models", len(reg)).
		Int("max_memory_mb", cfg.MaxMemoryMB).
		Int64("model_timeout_seconds", cfg.ModelTimeoutSeconds).
		Msg("embedding service configured")
	return &app{svc: svc, registry: reg, backend: b.Name(), stop: stop}, nil
}

// Close releases the model and stops any backend processes.
func (a *app) Close() {
	a.svc.Shutdown()
	a.stop()
}
