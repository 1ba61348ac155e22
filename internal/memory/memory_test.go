package memory

import (
	"sync"
	"testing"
	"time"
)

func newTestMonitor(limit int64, interval time.Duration) *Monitor {
	return NewMonitor(Config{
		MemoryLimitBytes:  limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     interval,
	})
}

func TestNewMonitor(t *testing.T) {
	t.Run("With explicit limit", func(t *testing.T) {
		m := newTestMonitor(100<<20, 5*time.Second)
		if m.limit != 100<<20 {
			t.Errorf("limit = %d, want %d", m.limit, 100<<20)
		}
		if m.config.HighWaterMark != 0.7 {
			t.Errorf("HighWaterMark = %v, want 0.7", m.config.HighWaterMark)
		}
	})

	t.Run("Without limit", func(t *testing.T) {
		// The limit may come from GOMEMLIMIT or stay zero; either way the
		// monitor must construct.
		m := newTestMonitor(0, 5*time.Second)
		if m.config.CheckInterval != 5*time.Second {
			t.Errorf("CheckInterval = %v", m.config.CheckInterval)
		}
	})
}

func TestMonitorStartStop(_ *testing.T) {
	m := newTestMonitor(100<<20, 20*time.Millisecond)
	m.Start()
	time.Sleep(60 * time.Millisecond)
	m.Stop()
}

func TestMonitorStatsAndUsage(t *testing.T) {
	m := newTestMonitor(100<<20, 20*time.Millisecond)
	m.Start()
	defer m.Stop()
	time.Sleep(60 * time.Millisecond)

	current, limit, usage := m.GetStats()
	if current < 0 {
		t.Errorf("current = %d, want >= 0", current)
	}
	if limit != 100<<20 {
		t.Errorf("limit = %d, want %d", limit, 100<<20)
	}
	if usage < 0 || usage > 1 {
		t.Errorf("usage = %v, want within [0, 1]", usage)
	}
	if u := m.GetUsage(); u < 0 || u > 1 {
		t.Errorf("GetUsage() = %v, want within [0, 1]", u)
	}
}

func TestMonitorUnlimitedIsInert(t *testing.T) {
	m := newTestMonitor(0, 20*time.Millisecond)
	if m.limit != 0 {
		t.Skip("GOMEMLIMIT set in this environment")
	}
	m.Start()
	defer m.Stop()

	if m.GetUsage() != 0 {
		t.Errorf("GetUsage() = %v, want 0 without a limit", m.GetUsage())
	}
	if m.ShouldThrottle() {
		t.Error("ShouldThrottle() = true without a limit")
	}
	if m.IsPaused() {
		t.Error("IsPaused() = true without a limit")
	}
}

func TestWaitIfPausedPassesWhenHealthy(t *testing.T) {
	m := newTestMonitor(100<<20, 20*time.Millisecond)
	m.Start()
	defer m.Stop()

	if !m.WaitIfPaused() {
		t.Error("WaitIfPaused() = false while healthy")
	}
}

func TestWaitIfPausedReleasedByStop(t *testing.T) {
	m := newTestMonitor(100<<20, time.Hour)
	m.mu.Lock()
	m.isPaused = true
	m.mu.Unlock()

	released := make(chan bool, 1)
	go func() { released <- m.WaitIfPaused() }()

	select {
	case got := <-released:
		t.Fatalf("WaitIfPaused returned %v before Stop", got)
	case <-time.After(30 * time.Millisecond):
	}

	m.Stop()
	select {
	case got := <-released:
		if got {
			t.Error("WaitIfPaused() = true after Stop while paused")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused never released after Stop")
	}
}

func TestMonitorForceGC(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("ForceGC panicked: %v", r)
		}
	}()
	newTestMonitor(100<<20, time.Second).ForceGC()
}

func TestMonitorConcurrentReads(_ *testing.T) {
	m := newTestMonitor(100<<20, 5*time.Millisecond)
	m.Start()

	var wg sync.WaitGroup
	for _, read := range []func(){
		func() { m.GetUsage() },
		func() { m.IsPaused() },
		func() { m.ShouldThrottle() },
		func() { m.GetStats() },
	} {
		wg.Add(1)
		go func(read func()) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				read()
				time.Sleep(2 * time.Millisecond)
			}
		}(read)
	}
	wg.Wait()
	m.Stop()
}
