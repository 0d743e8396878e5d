package manager

import (
	"time"

	"embedd/internal/backend"
)

// State represents the lifecycle state of the manager.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
)

// Handle is a loaded (model, tokenizer) pair and its metadata.
// It stays valid until the manager releases it.
type Handle struct {
	Tokenizer      backend.Tokenizer
	Model          backend.Model
	ModelID        string
	LoadedAt       time.Time
	MaxMemoryBytes int64
	TTL            time.Duration
}

// Expired reports whether more than TTL has elapsed since the handle loaded.
func (h *Handle) Expired(now time.Time) bool {
	if h == nil {
		return true
	}
	return now.Sub(h.LoadedAt) > h.TTL
}

// Info is a read-only projection of the manager state for health reporting.
type Info struct {
	ModelID         string
	State           State
	ModelLoaded     bool
	TokenizerLoaded bool
	// LoadedAt is zero when nothing is loaded.
	LoadedAt      time.Time
	MaxMemoryMB   int
	Timeout       time.Duration
	MemoryRSSMB   int
	LoadsTotal    uint64
	ReleasesTotal uint64
	LastError     string
	QueueLen      int
	Inflight      int
}
