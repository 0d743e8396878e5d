package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
)

// Manager owns one model handle at a time.
type Manager struct {
	backend     backend.Backend
	modelID     string
	maxMemoryMB int
	timeout     time.Duration
	loadTimeout time.Duration
	loadOpts    backend.LoadOptions
	log         zerolog.Logger
	publisher   EventPublisher
	now         func() time.Time
	memProbe    MemoryProbe

	// lifecycleMu serialises load and release; mu guards the fields below so
	// Info never waits on a load.
	lifecycleMu sync.Mutex
	mu          sync.RWMutex
	state       State
	handle      *Handle
	loads       uint64
	releases    uint64
	lastErr     string
	lastRSSMB   int

	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight request
	queueCh chan struct{} // buffered: queue slots
	maxWait time.Duration
}

// New constructs a Manager for modelID on b with package defaults.
func New(b backend.Backend, modelID string) *Manager {
	return NewWithConfig(ManagerConfig{Backend: b, ModelID: modelID})
}

// ModelID returns the configured model identifier.
func (m *Manager) ModelID() string { return m.modelID }

// Ready reports whether a model is loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateLoaded && m.handle != nil
}

// Info returns a snapshot of the manager. It has no side effects.
func (m *Manager) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inf := Info{
		ModelID:       m.modelID,
		State:         m.state,
		MaxMemoryMB:   m.maxMemoryMB,
		Timeout:       m.timeout,
		MemoryRSSMB:   m.lastRSSMB,
		LoadsTotal:    m.loads,
		ReleasesTotal: m.releases,
		LastError:     m.lastErr,
		QueueLen:      len(m.queueCh),
		Inflight:      len(m.genCh),
	}
	if h := m.handle; h != nil {
		inf.ModelLoaded = h.Model != nil
		inf.TokenizerLoaded = h.Tokenizer != nil
		inf.LoadedAt = h.LoadedAt
	}
	return inf
}

// Close releases the current handle. Safe to call more than once.
func (m *Manager) Close() error {
	m.Release()
	return nil
}
