package manager

import (
	"runtime"
	"runtime/debug"
)

const (
	releaseExplicit = "explicit"
	releaseExpired  = "expired"
)

// Release destroys the current handle and reclaims its memory. Idempotent.
func (m *Manager) Release() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	m.releaseLocked(releaseExplicit)
}

// releaseLocked closes the model then the tokenizer. Closing the model frees
// runtime memory (host and accelerator); the Go heap is reclaimed afterwards.
// Caller holds lifecycleMu.
func (m *Manager) releaseLocked(reason string) {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.state = StateUnloaded
	m.mu.Unlock()
	if h == nil {
		return
	}
	if h.Model != nil {
		if err := h.Model.Close(); err != nil {
			m.log.Warn().Str("model", h.ModelID).Err(err).Msg("model close failed")
		}
	}
	if h.Tokenizer != nil {
		if err := h.Tokenizer.Close(); err != nil {
			m.log.Warn().Str("model", h.ModelID).Err(err).Msg("tokenizer close failed")
		}
	}
	runtime.GC()
	debug.FreeOSMemory()

	m.mu.Lock()
	m.releases++
	m.lastRSSMB = 0
	m.mu.Unlock()
	releasesTotal.WithLabelValues(reason).Inc()
	modelLoaded.Set(0)
	m.log.Info().Str("event", EventRelease).Str("model", h.ModelID).Str("reason", reason).Msg("model released")
	m.publisher.Publish(Event{Name: EventRelease, ModelID: h.ModelID, Fields: map[string]any{"reason": reason}})
}
