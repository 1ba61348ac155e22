package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"media-forensics/internal/asset"
	"media-forensics/internal/metrics"
)

// HistoryEntry is one persisted analysis summary.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	RecordID    string    `json:"recordId"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Size        int64     `json:"size"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	CompletedAt time.Time `json:"completedAt"`

	AIConfidence *float64 `json:"aiConfidence,omitempty"`
	AISeverity   string   `json:"aiSeverity,omitempty"`
	AILabel      string   `json:"aiLabel,omitempty"`
	AISkipped    bool     `json:"aiSkipped"`

	MatchingPages *int `json:"matchingPages,omitempty"`

	Landmark  string   `json:"landmark,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	MetadataGPS      bool `json:"metadataGps"`
	MetadataStripped bool `json:"metadataStripped"`
	FrameCount       int  `json:"frameCount"`
}

// EntryFromRecord projects a completed record into its history row.
func EntryFromRecord(rec *asset.Record) HistoryEntry {
	e := HistoryEntry{
		RecordID:   rec.ID,
		Name:       rec.Name,
		Kind:       string(rec.Kind),
		Size:       rec.Size,
		SourceURL:  rec.SourceURL,
		FrameCount: len(rec.Frames),
	}
	if res := rec.AIDetection; res != nil {
		e.AISkipped = res.Skipped
		if !res.Skipped {
			c := res.Confidence
			e.AIConfidence = &c
			e.AISeverity = string(res.Severity)
			e.AILabel = res.Label
		}
	}
	if res := rec.Circulation; res != nil && !res.Skipped {
		n := res.MatchingPages
		e.MatchingPages = &n
	}
	if res := rec.Geolocation; res != nil && res.Found {
		e.Landmark = res.Landmark
		lat, lng := res.Latitude, res.Longitude
		e.Latitude = &lat
		e.Longitude = &lng
	}
	if sum := rec.Metadata; sum != nil && sum.Available {
		e.MetadataGPS = sum.HasGPS
		e.MetadataStripped = sum.Stripped
	}
	return e
}

// SaveAnalysis inserts one history row.
func (d *Database) SaveAnalysis(ctx context.Context, e HistoryEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO analysis_history (
			record_id, name, kind, size, source_url,
			ai_confidence, ai_severity, ai_label, ai_skipped,
			matching_pages, landmark, latitude, longitude,
			metadata_gps, metadata_stripped, frame_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.RecordID, e.Name, e.Kind, e.Size, nullStr(e.SourceURL),
		e.AIConfidence, nullStr(e.AISeverity), nullStr(e.AILabel), e.AISkipped,
		e.MatchingPages, nullStr(e.Landmark), e.Latitude, e.Longitude,
		e.MetadataGPS, e.MetadataStripped, e.FrameCount,
	)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues("save_analysis", status).Inc()
	metrics.DBQueryDuration.WithLabelValues("save_analysis").Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// ListRecent returns up to limit history entries, newest first.
func (d *Database) ListRecent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, record_id, name, kind, size, source_url,
			ai_confidence, ai_severity, ai_label, ai_skipped,
			matching_pages, landmark, latitude, longitude,
			metadata_gps, metadata_stripped, frame_count, completed_at
		FROM analysis_history
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		metrics.DBQueryTotal.WithLabelValues("list_history", "error").Inc()
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e           HistoryEntry
			sourceURL   sql.NullString
			severity    sql.NullString
			label       sql.NullString
			landmark    sql.NullString
			completedAt int64
		)
		if err := rows.Scan(
			&e.ID, &e.RecordID, &e.Name, &e.Kind, &e.Size, &sourceURL,
			&e.AIConfidence, &severity, &label, &e.AISkipped,
			&e.MatchingPages, &landmark, &e.Latitude, &e.Longitude,
			&e.MetadataGPS, &e.MetadataStripped, &e.FrameCount, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.SourceURL = sourceURL.String
		e.AISeverity = severity.String
		e.AILabel = label.String
		e.Landmark = landmark.String
		e.CompletedAt = time.Unix(completedAt, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	metrics.DBQueryTotal.WithLabelValues("list_history", "success").Inc()
	metrics.DBQueryDuration.WithLabelValues("list_history").Observe(time.Since(start).Seconds())
	return out, nil
}

// CountAnalyses returns the total number of persisted analyses.
func (d *Database) CountAnalyses(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_history").Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
