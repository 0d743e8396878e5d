package manager

import (
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxMemoryMB   = 512
	defaultTimeout       = time.Hour
	defaultLoadTimeout   = 2 * time.Minute
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Backend backend.Backend
	ModelID string
	// MaxMemoryMB is the resident memory ceiling checked after each load.
	MaxMemoryMB int
	// Timeout is the handle time-to-live; an older handle is reloaded.
	Timeout       time.Duration
	LoadTimeout   time.Duration
	LoadOptions   backend.LoadOptions
	MaxQueueDepth int
	MaxWait       time.Duration

	Logger    zerolog.Logger
	Publisher EventPublisher
	// Clock returns the current time; time.Now when nil.
	Clock func() time.Time
	// MemoryProbe samples resident memory; gopsutil based when nil.
	MemoryProbe MemoryProbe
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		backend:     cfg.Backend,
		modelID:     cfg.ModelID,
		maxMemoryMB: cfg.MaxMemoryMB,
		timeout:     cfg.Timeout,
		loadTimeout: cfg.LoadTimeout,
		loadOpts:    cfg.LoadOptions,
		maxWait:     cfg.MaxWait,
		log:         cfg.Logger.With().Str("component", "manager").Logger(),
		publisher:   cfg.Publisher,
		now:         cfg.Clock,
		memProbe:    cfg.MemoryProbe,
		state:       StateUnloaded,
	}
	if m.maxMemoryMB <= 0 {
		m.maxMemoryMB = defaultMaxMemoryMB
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	if m.loadTimeout <= 0 {
		m.loadTimeout = defaultLoadTimeout
	}
	if m.maxWait <= 0 {
		m.maxWait = defaultMaxWait
	}
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, depth)
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.memProbe == nil {
		m.memProbe = processMemoryProbe{}
	}
	return m
}
