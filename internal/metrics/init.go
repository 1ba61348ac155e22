package metrics

// InitializeMetrics pre-populates the label combinations we know about so
// every series exists at startup with a zero value instead of appearing only
// after first use.
func InitializeMetrics() {
	statuses := []string{"success", "error"}

	for _, typ := range []string{"image", "video"} {
		for _, status := range statuses {
			PreviewGenerationsTotal.WithLabelValues(typ, status)
		}
		PreviewGenerationDuration.WithLabelValues(typ)
	}

	for _, status := range statuses {
		FrameExtractionsTotal.WithLabelValues(status)
	}

	providers := []string{"aiDetection", "circulation", "geolocation", "metadata"}
	for _, provider := range providers {
		for _, status := range []string{"success", "error", "skipped"} {
			ProviderSettlesTotal.WithLabelValues(provider, status)
		}
		ProviderDuration.WithLabelValues(provider)
	}

	for _, outcome := range []string{"complete", "failed"} {
		AnalysesTotal.WithLabelValues(outcome)
	}

	for _, state := range []string{"idle", "loading", "complete"} {
		RegistryRecordsByState.WithLabelValues(state)
	}

	for _, op := range []string{"save_analysis", "list_history", "count_analyses"} {
		for _, status := range statuses {
			DBQueryTotal.WithLabelValues(op, status)
		}
		DBQueryDuration.WithLabelValues(op)
	}
}
