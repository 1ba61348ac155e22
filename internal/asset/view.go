package asset

import (
	"fmt"
	"time"

	"media-forensics/internal/mediatypes"
)

// CapabilityStatus describes where one capability block is in its lifecycle.
type CapabilityStatus string

const (
	CapabilityIdle     CapabilityStatus = "idle"
	CapabilityLoading  CapabilityStatus = "loading"
	CapabilityComplete CapabilityStatus = "complete"
	CapabilityError    CapabilityStatus = "error"
	CapabilitySkipped  CapabilityStatus = "skipped"
)

// CapabilityBlock is the per-capability slice of the rendering contract.
type CapabilityBlock struct {
	Status   CapabilityStatus `json:"status"`
	Severity Severity         `json:"severity,omitempty"`
	Label    string           `json:"label,omitempty"`
	Detail   string           `json:"detail,omitempty"`
}

// FrameView is the read-only representation of one derived frame.
type FrameView struct {
	ID           string  `json:"id"`
	Index        int     `json:"index"`
	TimestampMS  int64   `json:"timestampMs"`
	PreviewURL   string  `json:"previewUrl,omitempty"`
	AIConfidence float64 `json:"aiConfidence,omitempty"`
	HasScore     bool    `json:"hasScore"`
}

// View is the sole contract consumed by presentation clients.
type View struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Kind            mediatypes.Kind `json:"kind"`
	Size            int64           `json:"size"`
	UploadProgress  int             `json:"uploadProgress"`
	Failed          bool            `json:"failed"`
	AnalysisState   AnalysisState   `json:"analysisState"`
	AnalysisError   string          `json:"analysisError,omitempty"`
	PreviewURL      string          `json:"previewUrl,omitempty"`
	SourceURL       string          `json:"sourceUrl,omitempty"`
	PublishedDate   string          `json:"publishedDate,omitempty"`
	DurationSeconds float64         `json:"durationSeconds,omitempty"`
	Frames          []FrameView     `json:"frames,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`

	AIDetection CapabilityBlock `json:"aiDetection"`
	Metadata    CapabilityBlock `json:"metadata"`
	Circulation CapabilityBlock `json:"circulation"`
	Geolocation CapabilityBlock `json:"geolocation"`
}

// BuildView projects a record snapshot into its read-only view. previewURL
// resolves the record (or frame) identifier to a servable URL; it may be nil
// when no preview routes are mounted.
func BuildView(r *Record, previewURL func(recordID, frameID string) string) View {
	if previewURL == nil {
		previewURL = func(string, string) string { return "" }
	}

	v := View{
		ID:              r.ID,
		Name:            r.Name,
		Kind:            r.Kind,
		Size:            r.Size,
		UploadProgress:  r.UploadProgress,
		Failed:          r.Failed,
		AnalysisState:   r.AnalysisState,
		AnalysisError:   r.AnalysisError,
		SourceURL:       r.SourceURL,
		PublishedDate:   r.PublishedDate,
		DurationSeconds: r.DurationSeconds,
		CreatedAt:       r.CreatedAt,
	}
	if r.PreviewPath != "" {
		v.PreviewURL = previewURL(r.ID, "")
	}
	for _, f := range r.Frames {
		fv := FrameView{
			ID:           f.ID,
			Index:        f.Index,
			TimestampMS:  f.TimestampMS,
			AIConfidence: f.AIConfidence,
			HasScore:     f.HasConfidence,
		}
		if f.PreviewPath != "" {
			fv.PreviewURL = previewURL(r.ID, f.ID)
		}
		v.Frames = append(v.Frames, fv)
	}

	v.AIDetection = aiDetectionBlock(r)
	v.Metadata = metadataBlock(r)
	v.Circulation = circulationBlock(r)
	v.Geolocation = geolocationBlock(r)
	return v
}

func baseBlock(ps *ProviderState) (CapabilityBlock, bool) {
	switch {
	case ps == nil || !ps.Requested:
		return CapabilityBlock{Status: CapabilityIdle}, true
	case ps.Loading:
		return CapabilityBlock{Status: CapabilityLoading}, true
	case ps.Error != "":
		return CapabilityBlock{
			Status:   CapabilityError,
			Severity: SeverityError,
			Label:    "Analysis failed",
			Detail:   ps.Error,
		}, true
	}
	return CapabilityBlock{Status: CapabilityComplete}, false
}

func aiDetectionBlock(r *Record) CapabilityBlock {
	block, done := baseBlock(r.Providers[ProviderAIDetection])
	if done {
		return block
	}
	res := r.AIDetection
	if res == nil || res.Skipped {
		return CapabilityBlock{
			Status: CapabilitySkipped,
			Label:  "AI detection not configured",
		}
	}
	block.Severity = res.Severity
	block.Label = res.Label
	block.Detail = fmt.Sprintf("Confidence %.0f/100", res.Confidence)
	if n := len(res.FrameScores); n > 1 {
		block.Detail = fmt.Sprintf("Confidence %.0f/100 across %d frames", res.Confidence, n)
	}
	return block
}

func metadataBlock(r *Record) CapabilityBlock {
	block, done := baseBlock(r.Providers[ProviderMetadata])
	if done {
		return block
	}
	sum := r.Metadata
	if sum == nil || !sum.Available {
		return CapabilityBlock{
			Status:   CapabilityComplete,
			Severity: SeverityInfo,
			Label:    "Metadata unavailable",
		}
	}
	fields := 0
	for _, g := range sum.Groups {
		fields += len(g.Entries)
	}
	switch {
	case sum.Stripped:
		block.Severity = SeverityWarning
		block.Label = "Metadata stripped"
		block.Detail = "No identifying metadata found"
	case sum.HasGPS:
		block.Severity = SeverityWarning
		block.Label = "Embedded location data"
		block.Detail = fmt.Sprintf("%d metadata fields, including GPS coordinates", fields)
	default:
		block.Severity = SeverityInfo
		block.Label = "Metadata present"
		block.Detail = fmt.Sprintf("%d metadata fields", fields)
	}
	return block
}

func circulationBlock(r *Record) CapabilityBlock {
	block, done := baseBlock(r.Providers[ProviderCirculation])
	if done {
		return block
	}
	res := r.Circulation
	if res == nil || res.Skipped {
		return CapabilityBlock{
			Status: CapabilitySkipped,
			Label:  "Web search not configured",
		}
	}
	if res.MatchingPages == 0 {
		block.Severity = SeverityInfo
		block.Label = "No prior circulation found"
		return block
	}
	block.Severity = SeverityWarning
	block.Label = fmt.Sprintf("Seen on %d pages", res.MatchingPages)
	block.Detail = fmt.Sprintf("%d full and %d partial image matches", res.FullMatches, res.PartialMatches)
	if res.BestGuess != "" {
		block.Detail += " - best guess: " + res.BestGuess
	}
	return block
}

func geolocationBlock(r *Record) CapabilityBlock {
	block, done := baseBlock(r.Providers[ProviderGeolocation])
	if done {
		return block
	}
	res := r.Geolocation
	if res == nil || res.Skipped {
		return CapabilityBlock{
			Status: CapabilitySkipped,
			Label:  "Geolocation not configured",
		}
	}
	if !res.Found {
		block.Severity = SeverityInfo
		block.Label = "No location inferred"
		return block
	}
	block.Severity = SeverityInfo
	block.Label = res.Landmark
	block.Detail = fmt.Sprintf("%.5f, %.5f (score %.2f)", res.Latitude, res.Longitude, res.Score)
	return block
}
