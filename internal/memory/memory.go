package memory

import (
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-forensics/internal/logging"
	"media-forensics/internal/metrics"
)

// Config tunes the backpressure monitor.
type Config struct {
	// MemoryLimitBytes is the soft limit; zero falls back to GOMEMLIMIT.
	MemoryLimitBytes int64

	// HighWaterMark is the fraction of the limit at which frame extraction
	// starts throttling.
	HighWaterMark float64

	// CriticalWaterMark is the fraction at which extraction pauses entirely.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the watermarks the service ships with.
func DefaultConfig() Config {
	return Config{
		MemoryLimitBytes:  0,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and turns it into pause/throttle signals for
// the frame extraction pipeline, whose decoded stills dominate allocation.
type Monitor struct {
	config Config
	limit  int64
	stop   chan struct{}

	mu       sync.RWMutex
	alloc    uint64
	isPaused bool
	// resume is closed to wake WaitIfPaused callers, then replaced.
	resume chan struct{}
}

// NewMonitor creates a Monitor. With no explicit limit it adopts
// GOMEMLIMIT; with neither, backpressure is disabled.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
			logging.Info("Memory monitor using GOMEMLIMIT: %d bytes (%.1f MB)", limit, float64(limit)/(1024*1024))
		}
	}
	if limit == 0 {
		logging.Warn("Memory monitor: no memory limit configured, backpressure disabled")
	}

	return &Monitor{
		config: config,
		limit:  limit,
		stop:   make(chan struct{}),
		resume: make(chan struct{}),
	}
}

// Start begins sampling. A monitor without a limit is inert.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sample()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts sampling and releases any extraction waiting in WaitIfPaused.
func (m *Monitor) Stop() {
	close(m.stop)
}

func (m *Monitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.alloc = stats.Alloc
	if m.limit <= 0 {
		return
	}

	usage := float64(stats.Alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.CriticalWaterMark && !m.isPaused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing processing", usage*100)
		m.isPaused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.isPaused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming processing", usage*100)
		m.isPaused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// WaitIfPaused blocks while usage sits above the critical mark. It returns
// false only when the monitor is stopped while waiting.
func (m *Monitor) WaitIfPaused() bool {
	m.mu.RLock()
	paused, resume := m.isPaused, m.resume
	m.mu.RUnlock()

	if !paused {
		return true
	}
	select {
	case <-resume:
		return true
	case <-m.stop:
		return false
	}
}

// ShouldThrottle reports whether usage has crossed the high water mark.
func (m *Monitor) ShouldThrottle() bool {
	if m.limit == 0 {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.alloc) >= float64(m.limit)*m.config.HighWaterMark
}

// IsPaused reports whether extraction is currently paused.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

// GetUsage returns usage as a fraction of the limit, zero when unlimited.
func (m *Monitor) GetUsage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.alloc) / float64(m.limit)
}

// GetStats returns the last sampled allocation, the limit, and their ratio.
func (m *Monitor) GetStats() (current, limit int64, usage float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	current = math.MaxInt64
	if m.alloc <= math.MaxInt64 {
		current = int64(m.alloc)
	}
	if m.limit > 0 {
		usage = float64(m.alloc) / float64(m.limit)
	}
	return current, m.limit, usage
}

// ForceGC triggers an immediate collection.
func (m *Monitor) ForceGC() {
	runtime.GC()
}
