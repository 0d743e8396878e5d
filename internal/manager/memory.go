package manager

import (
	"os"

	"github.com/shirou/gopsutil/v4/process"

	"embedd/internal/backend"
)

// MemoryProbe returns the combined resident set size of pids in bytes.
type MemoryProbe interface {
	RSS(pids ...int) (uint64, error)
}

// processMemoryProbe reads RSS through gopsutil.
type processMemoryProbe struct{}

func (processMemoryProbe) RSS(pids ...int) (uint64, error) {
	var total uint64
	for _, pid := range pids {
		p, err := process.NewProcess(int32(pid))
		if err != nil {
			return 0, err
		}
		mi, err := p.MemoryInfo()
		if err != nil {
			return 0, err
		}
		total += mi.RSS
	}
	return total, nil
}

// checkMemory samples this process plus any runtime subprocess and warns when
// the total is above the ceiling. It never fails a load.
func (m *Manager) checkMemory(h *Handle) {
	pids := []int{os.Getpid()}
	if p, ok := h.Model.(backend.Process); ok && p.PID() > 0 {
		pids = append(pids, p.PID())
	}
	rss, err := m.memProbe.RSS(pids...)
	if err != nil {
		m.log.Debug().Err(err).Msg("memory sample failed")
		return
	}
	mb := int(rss >> 20)
	m.mu.Lock()
	m.lastRSSMB = mb
	m.mu.Unlock()
	memoryRSS.Set(float64(rss))
	if mb > m.maxMemoryMB {
		m.log.Warn().Str("event", EventMemoryExceeded).Str("model", h.ModelID).Int("rss_mb", mb).Int("max_memory_mb", m.maxMemoryMB).Msg("resident memory above ceiling")
		m.publisher.Publish(Event{Name: EventMemoryExceeded, ModelID: h.ModelID, Fields: map[string]any{"rss_mb": mb, "max_memory_mb": m.maxMemoryMB}})
		return
	}
	m.log.Info().Str("model", h.ModelID).Int("rss_mb", mb).Int("max_memory_mb", m.maxMemoryMB).Msg("memory usage after load")
}
