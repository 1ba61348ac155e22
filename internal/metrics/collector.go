package metrics

import (
	"time"

	"media-forensics/internal/logging"
)

// StatsProvider supplies point-in-time counts for the collector.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current service statistics.
type Stats struct {
	TotalRecords    int
	RecordsByState  map[string]int
	HistoryAnalyses int
}

// Collector polls a StatsProvider on an interval and publishes the
// registry gauges. Counters and histograms update inline at their call
// sites; only the point-in-time gauges need a ticker.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the collection loop in a goroutine.
func (c *Collector) Start() {
	go func() {
		c.collect()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop stops the collection loop.
func (c *Collector) Stop() {
	close(c.stop)
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	stats := c.provider.GetStats()

	RegistryRecords.Set(float64(stats.TotalRecords))
	for _, state := range []string{"idle", "loading", "complete"} {
		RegistryRecordsByState.WithLabelValues(state).Set(float64(stats.RecordsByState[state]))
	}

	logging.Debug("Metrics collected: records=%d, history=%d",
		stats.TotalRecords, stats.HistoryAnalyses)
}
