// Package procmon samples the daemon's own resource usage so operators
// (and, eventually, a status command) can see when the daemon itself is
// the problem rather than whatever it's monitoring.
package procmon

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Status is a coarse health classification derived from comparing the
// latest sample against configured thresholds.
type Status int

const (
	Healthy Status = iota
	Degraded
	Failed
)

func (s Status) String() string {
	switch s {
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	default:
		return "healthy"
	}
}

// defaultSampleInterval matches spec's self-metrics cadence.
const defaultSampleInterval = 60 * time.Second

// Thresholds at or above which the daemon is considered Degraded. Crossing
// both simultaneously is still just Degraded -- procmon has no Failed
// condition of its own; Failed is reserved for a caller that knows the
// process is about to be killed (e.g. an OOM-adjacent cgroup signal),
// which this package doesn't observe.
type Thresholds struct {
	RSSBytes    uint64
	CPUPercent  float64
}

// DefaultThresholds matches the spec's 100MB RSS / 80% CPU bands.
func DefaultThresholds() Thresholds {
	return Thresholds{RSSBytes: 100 * 1024 * 1024, CPUPercent: 80}
}

// Sample is one resource-usage reading.
type Sample struct {
	RSSBytes   uint64
	CPUPercent float64
	Status     Status
	At         time.Time
}

// Monitor samples the current process's own RSS and CPU usage on a
// timer and keeps the latest reading available for Snapshot.
type Monitor struct {
	mu         sync.RWMutex
	proc       *process.Process
	thresholds Thresholds
	last       Sample
	logger     *zap.Logger
}

// New opens a gopsutil handle on the calling process (pid).
func New(pid int32, thresholds Thresholds, logger *zap.Logger) (*Monitor, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{proc: proc, thresholds: thresholds, logger: logger}, nil
}

// Sample takes one reading, updates the stored snapshot, and returns it.
func (m *Monitor) Sample() Sample {
	memInfo, err := m.proc.MemoryInfo()
	var rss uint64
	if err == nil && memInfo != nil {
		rss = memInfo.RSS
	}

	cpuPct, err := m.proc.CPUPercent()
	if err != nil {
		cpuPct = 0
	}

	s := Sample{
		RSSBytes:   rss,
		CPUPercent: cpuPct,
		Status:     m.classify(rss, cpuPct),
		At:         time.Now(),
	}

	m.mu.Lock()
	m.last = s
	m.mu.Unlock()

	if s.Status != Healthy {
		m.logger.Warn("daemon resource usage degraded",
			zap.String("status", s.Status.String()),
			zap.Uint64("rss_bytes", rss),
			zap.Float64("cpu_percent", cpuPct))
	}
	return s
}

func (m *Monitor) classify(rss uint64, cpuPct float64) Status {
	if rss >= m.thresholds.RSSBytes || cpuPct >= m.thresholds.CPUPercent {
		return Degraded
	}
	return Healthy
}

// Snapshot returns the most recent sample without taking a new one.
func (m *Monitor) Snapshot() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run samples immediately, then every defaultSampleInterval until ctx
// is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.Sample()

	ticker := time.NewTicker(defaultSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample()
		}
	}
}
