package main

import (
	"testing"

	"media-forensics/internal/asset"
	"media-forensics/internal/mediatypes"
	"media-forensics/internal/metrics"
	"media-forensics/internal/registry"
)

func TestStatsProvider(t *testing.T) {
	t.Run("GetStats counts registry records by state", func(t *testing.T) {
		store := registry.New()

		idle := asset.NewRecord("a", "a.jpg", mediatypes.KindImage, 1)
		loading := asset.NewRecord("b", "b.jpg", mediatypes.KindImage, 1)
		loading.AnalysisState = asset.StateLoading
		done := asset.NewRecord("c", "c.mp4", mediatypes.KindVideo, 1)
		done.AnalysisState = asset.StateComplete
		for _, rec := range []*asset.Record{idle, loading, done} {
			store.Put(rec)
		}

		adapter := &statsProvider{store: store}

		var _ metrics.StatsProvider = adapter

		stats := adapter.GetStats()

		if stats.TotalRecords != 3 {
			t.Errorf("TotalRecords = %d, want 3", stats.TotalRecords)
		}
		if stats.RecordsByState["idle"] != 1 {
			t.Errorf("idle = %d, want 1", stats.RecordsByState["idle"])
		}
		if stats.RecordsByState["loading"] != 1 {
			t.Errorf("loading = %d, want 1", stats.RecordsByState["loading"])
		}
		if stats.RecordsByState["complete"] != 1 {
			t.Errorf("complete = %d, want 1", stats.RecordsByState["complete"])
		}
	})

	t.Run("GetStats tolerates a missing history database", func(t *testing.T) {
		adapter := &statsProvider{store: registry.New()}

		stats := adapter.GetStats()

		if stats.HistoryAnalyses != 0 {
			t.Errorf("HistoryAnalyses = %d, want 0 without a database", stats.HistoryAnalyses)
		}
	})
}
