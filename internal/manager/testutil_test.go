package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
	"embedd/internal/backend/backendtest"
)

// fakeClock is a settable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fixedProbe reports a constant RSS.
type fixedProbe struct {
	rss  uint64
	err  error
	pids []int
}

func (p *fixedProbe) RSS(pids ...int) (uint64, error) {
	p.pids = pids
	return p.rss, p.err
}

// liveCheckingBackend records how many models were live each time a new one
// was requested.
type liveCheckingBackend struct {
	*backendtest.Backend
	mu         sync.Mutex
	liveAtLoad []int
}

func (b *liveCheckingBackend) LoadModel(ctx context.Context, id string, opts backend.LoadOptions) (backend.Model, error) {
	b.mu.Lock()
	b.liveAtLoad = append(b.liveAtLoad, b.Stats().Live)
	b.mu.Unlock()
	return b.Backend.LoadModel(ctx, id, opts)
}

type harness struct {
	m     *Manager
	fb    *backendtest.Backend
	clock *fakeClock
	pub   *MemoryPublisher
	probe *fixedProbe
}

func newHarness(t *testing.T, mutate func(*ManagerConfig)) *harness {
	t.Helper()
	h := &harness{
		fb:    backendtest.New(),
		clock: newFakeClock(),
		pub:   NewMemoryPublisher(),
		probe: &fixedProbe{rss: 100 << 20},
	}
	cfg := ManagerConfig{
		Backend:     h.fb,
		ModelID:     "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:     time.Hour,
		Logger:      zerolog.Nop(),
		Publisher:   h.pub,
		Clock:       h.clock.Now,
		MemoryProbe: h.probe,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.m = NewWithConfig(cfg)
	t.Cleanup(h.m.Release)
	return h
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
