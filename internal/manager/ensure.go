package manager

import (
	"context"
	"errors"
	"time"
)

// EnsureLoaded returns a valid handle, loading the model when none is held
// and reloading it when the held one is older than the timeout. The expired
// handle is released before the new load starts.
func (m *Manager) EnsureLoaded(ctx context.Context) (*Handle, error) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()
	if h != nil {
		now := m.now()
		if !h.Expired(now) {
			return h, nil
		}
		age := now.Sub(h.LoadedAt)
		m.log.Info().Str("event", EventReloadExpired).Str("model", m.modelID).Dur("age", age).Msg("model handle expired, reloading")
		m.publisher.Publish(Event{Name: EventReloadExpired, ModelID: m.modelID, Fields: map[string]any{"age_seconds": int64(age.Seconds())}})
		m.releaseLocked(releaseExpired)
	}
	return m.load(ctx)
}

// load runs tokenizer, model, warmup. Any failure closes what was acquired.
// Caller holds lifecycleMu.
func (m *Manager) load(ctx context.Context) (*Handle, error) {
	if m.backend == nil {
		return nil, NewModelLoadError(errors.New("no backend configured"))
	}
	m.setState(StateLoading)
	m.publisher.Publish(Event{Name: EventLoadStart, ModelID: m.modelID, Fields: map[string]any{"backend": m.backend.Name()}})
	m.log.Info().Str("event", EventLoadStart).Str("model", m.modelID).Str("backend", m.backend.Name()).Msg("loading model")
	start := time.Now()

	lctx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()

	fail := func(stage string, err error) (*Handle, error) {
		m.mu.Lock()
		m.state = StateUnloaded
		m.lastErr = err.Error()
		m.mu.Unlock()
		loadsTotal.WithLabelValues("error").Inc()
		m.log.Error().Str("event", EventLoadError).Str("model", m.modelID).Str("stage", stage).Err(err).Msg("model load failed")
		m.publisher.Publish(Event{Name: EventLoadError, ModelID: m.modelID, Fields: map[string]any{"stage": stage, "error": err.Error()}})
		return nil, NewModelLoadError(err)
	}

	tok, err := m.backend.LoadTokenizer(lctx, m.modelID)
	if err != nil {
		return fail("tokenizer", err)
	}
	mdl, err := m.backend.LoadModel(lctx, m.modelID, m.loadOpts)
	if err != nil {
		_ = tok.Close()
		return fail("model", err)
	}
	if err := mdl.Warmup(lctx); err != nil {
		_ = mdl.Close()
		_ = tok.Close()
		return fail("warmup", err)
	}

	h := &Handle{
		Tokenizer:      tok,
		Model:          mdl,
		ModelID:        m.modelID,
		LoadedAt:       m.now(),
		MaxMemoryBytes: int64(m.maxMemoryMB) << 20,
		TTL:            m.timeout,
	}
	dur := time.Since(start)
	m.mu.Lock()
	m.handle = h
	m.state = StateLoaded
	m.loads++
	m.lastErr = ""
	m.mu.Unlock()
	loadsTotal.WithLabelValues("ok").Inc()
	loadDuration.Observe(dur.Seconds())
	modelLoaded.Set(1)

	m.checkMemory(h)
	m.log.Info().Str("event", EventLoadReady).Str("model", m.modelID).Dur("dur", dur).Msg("model loaded")
	m.publisher.Publish(Event{Name: EventLoadReady, ModelID: m.modelID, Fields: map[string]any{"duration_ms": dur.Milliseconds()}})
	return h, nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
