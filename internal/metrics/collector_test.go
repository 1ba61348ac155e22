package metrics

import (
	"sync"
	"testing"
	"time"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	calls int
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectorCollectsImmediately(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			TotalRecords:   3,
			RecordsByState: map[string]int{"idle": 1, "loading": 1, "complete": 1},
		},
	}

	c := NewCollector(provider, time.Hour)
	c.Start()
	defer c.Stop()

	deadline := time.After(time.Second)
	for provider.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("collector never called GetStats")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCollectorStops(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, 5*time.Millisecond)
	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Stop()

	stopped := provider.callCount()
	time.Sleep(30 * time.Millisecond)
	if after := provider.callCount(); after != stopped {
		t.Errorf("collector kept collecting after Stop: %d -> %d", stopped, after)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Millisecond)
	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Stop()
}

func TestInitializeMetrics(t *testing.T) {
	// Must be callable repeatedly without panicking.
	InitializeMetrics()
	InitializeMetrics()
}
