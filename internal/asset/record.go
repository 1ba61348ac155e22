package asset

import (
	"time"

	"media-forensics/internal/mediatypes"
)

// AnalysisState tracks the record-level analysis lifecycle.
type AnalysisState string

const (
	// StateIdle means analysis has not been triggered, or a failed run was
	// returned for retry.
	StateIdle AnalysisState = "idle"
	// StateLoading means providers are in flight.
	StateLoading AnalysisState = "loading"
	// StateComplete means every requested provider has settled.
	StateComplete AnalysisState = "complete"
)

// ProviderID identifies one analysis capability wired to the orchestrator.
type ProviderID string

const (
	ProviderAIDetection ProviderID = "aiDetection"
	ProviderCirculation ProviderID = "circulation"
	ProviderGeolocation ProviderID = "geolocation"
	ProviderMetadata    ProviderID = "metadata"
)

// ProviderIDs lists every capability in a stable order.
var ProviderIDs = []ProviderID{
	ProviderAIDetection,
	ProviderCirculation,
	ProviderGeolocation,
	ProviderMetadata,
}

// ProviderState is the per-(record, provider) sub-state. Requested is
// monotonic for the record's lifetime until an explicit retry clears it;
// Loading is true only while a request is in flight.
type ProviderState struct {
	Requested bool      `json:"requested"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	SettledAt time.Time `json:"settledAt,omitzero"`
}

// Settled reports whether the provider was triggered and has finished,
// successfully or not.
func (p ProviderState) Settled() bool {
	return p.Requested && !p.Loading
}

// FrameScore is one frame's AI-generation confidence, keyed by the frame's
// position in the source video. Frames whose scoring call failed have no
// entry, so positions in this slice carry no meaning on their own.
type FrameScore struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// AIDetectionResult holds the mapped output of the AI-generation scorer.
type AIDetectionResult struct {
	// Confidence is the 0-100 likelihood that the artifact is AI-generated.
	// For video assets this is promoted from the first frame.
	Confidence  float64      `json:"confidence"`
	Severity    Severity     `json:"severity"`
	Label       string       `json:"label"`
	FrameScores []FrameScore `json:"frameScores,omitempty"`
	// Skipped marks an intentionally absent score (capability disabled or
	// credentials missing), as opposed to a runtime failure.
	Skipped bool `json:"skipped,omitempty"`
}

// PageMatch is one web page that carries a matching image.
type PageMatch struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// CirculationResult summarizes reverse-image / web-presence findings.
type CirculationResult struct {
	MatchingPages  int         `json:"matchingPages"`
	FullMatches    int         `json:"fullMatches"`
	PartialMatches int         `json:"partialMatches"`
	TopPages       []PageMatch `json:"topPages,omitempty"`
	BestGuess      string      `json:"bestGuess,omitempty"`
	Skipped        bool        `json:"skipped,omitempty"`
}

// GeolocationResult holds the best inferred capture location.
type GeolocationResult struct {
	Found     bool    `json:"found"`
	Landmark  string  `json:"landmark,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Score     float64 `json:"score,omitempty"`
	Skipped   bool    `json:"skipped,omitempty"`
}

// MetadataEntry is one flattened (key, value) pair from embedded metadata.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MetadataGroup groups related entries (camera, capture, GPS, ...).
type MetadataGroup struct {
	Name    string          `json:"name"`
	Entries []MetadataEntry `json:"entries"`
}

// MetadataSummary is the structured output of the metadata extractor.
// An unavailable summary (parse failure, no EXIF support for the format)
// has Available=false and nothing else set.
type MetadataSummary struct {
	Available bool            `json:"available"`
	Stripped  bool            `json:"stripped"`
	HasGPS    bool            `json:"hasGps"`
	Groups    []MetadataGroup `json:"groups,omitempty"`
}

// Frame is a derived still sampled from a video parent. It is never itself
// uploaded; SourceURL is inherited from the parent for fact-check purposes.
type Frame struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentId"`
	Index       int    `json:"index"`
	TimestampMS int64  `json:"timestampMs"`
	// PreviewPath is the revocable on-disk handle for the rendered frame.
	PreviewPath string `json:"-"`
	Base64      string `json:"-"`
	SourceURL   string `json:"sourceUrl,omitempty"`
	// AIConfidence is populated per frame by the AI-detection adapter.
	AIConfidence  float64 `json:"aiConfidence,omitempty"`
	HasConfidence bool    `json:"hasConfidence,omitempty"`
}

// Record is the mutable per-asset state owned by the registry.
type Record struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Kind     mediatypes.Kind `json:"kind"`
	Size     int64           `json:"size"`
	MimeType string          `json:"mimeType,omitempty"`

	// UploadProgress is the cosmetic 0-100 counter; it never gates analysis.
	UploadProgress int  `json:"uploadProgress"`
	Failed         bool `json:"failed"`

	AnalysisState AnalysisState `json:"analysisState"`
	AnalysisError string        `json:"analysisError,omitempty"`

	// Generation counts analysis runs for this record. Async settlements
	// carry the generation they were started under; a merge whose stamp is
	// older than the record's is from a superseded run and must be dropped.
	Generation uint64 `json:"-"`

	// PreviewPath and SourcePath are owned on-disk resources, released
	// exactly once when the record is deleted or superseded.
	PreviewPath string `json:"-"`
	SourcePath  string `json:"-"`
	SourceURL   string `json:"sourceUrl,omitempty"`

	// Base64 is populated lazily in the background for providers that
	// require inline bytes.
	Base64 string `json:"-"`

	Providers map[ProviderID]*ProviderState `json:"providers"`

	AIDetection   *AIDetectionResult `json:"aiDetection,omitempty"`
	Circulation   *CirculationResult `json:"circulation,omitempty"`
	Geolocation   *GeolocationResult `json:"geolocation,omitempty"`
	Metadata      *MetadataSummary   `json:"metadata,omitempty"`
	PublishedDate string             `json:"publishedDate,omitempty"`

	// Video parent fields. Frames holds the derived frame set; the first
	// frame's preview and base64 are mirrored into PreviewPath/Base64 so
	// generic consumers treat video records uniformly with images.
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Frames          []Frame `json:"frames,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewRecord returns a Record in its initial lifecycle state with all
// provider sub-states allocated.
func NewRecord(id, name string, kind mediatypes.Kind, size int64) *Record {
	return &Record{
		ID:            id,
		Name:          name,
		Kind:          kind,
		Size:          size,
		AnalysisState: StateIdle,
		Providers:     freshProviders(),
		CreatedAt:     time.Now().UTC(),
	}
}

func freshProviders() map[ProviderID]*ProviderState {
	m := make(map[ProviderID]*ProviderState, len(ProviderIDs))
	for _, id := range ProviderIDs {
		m[id] = &ProviderState{}
	}
	return m
}

// Provider returns the sub-state for id, allocating it if absent.
func (r *Record) Provider(id ProviderID) *ProviderState {
	if r.Providers == nil {
		r.Providers = freshProviders()
	}
	ps, ok := r.Providers[id]
	if !ok {
		ps = &ProviderState{}
		r.Providers[id] = ps
	}
	return ps
}

// AllSettled reports whether every requested provider has finished.
// Providers that were never requested do not count.
func (r *Record) AllSettled() bool {
	any := false
	for _, ps := range r.Providers {
		if !ps.Requested {
			continue
		}
		any = true
		if ps.Loading {
			return false
		}
	}
	return any
}

// ResetAnalysis clears all provider flags, results, and errors for an
// explicit retry. Owned resources are untouched; the caller decides what
// to release and re-acquire.
func (r *Record) ResetAnalysis() {
	r.AnalysisState = StateIdle
	r.AnalysisError = ""
	r.Failed = false
	r.UploadProgress = 0
	r.Providers = freshProviders()
	r.AIDetection = nil
	r.Circulation = nil
	r.Geolocation = nil
	r.Metadata = nil
	for i := range r.Frames {
		r.Frames[i].AIConfidence = 0
		r.Frames[i].HasConfidence = false
	}
}

// Clone returns a deep copy safe to hand across the registry boundary.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Providers = make(map[ProviderID]*ProviderState, len(r.Providers))
	for id, ps := range r.Providers {
		s := *ps
		cp.Providers[id] = &s
	}
	if r.AIDetection != nil {
		v := *r.AIDetection
		v.FrameScores = append([]FrameScore(nil), r.AIDetection.FrameScores...)
		cp.AIDetection = &v
	}
	if r.Circulation != nil {
		v := *r.Circulation
		v.TopPages = append([]PageMatch(nil), r.Circulation.TopPages...)
		cp.Circulation = &v
	}
	if r.Geolocation != nil {
		v := *r.Geolocation
		cp.Geolocation = &v
	}
	if r.Metadata != nil {
		v := *r.Metadata
		v.Groups = make([]MetadataGroup, len(r.Metadata.Groups))
		for i, g := range r.Metadata.Groups {
			v.Groups[i] = MetadataGroup{
				Name:    g.Name,
				Entries: append([]MetadataEntry(nil), g.Entries...),
			}
		}
		cp.Metadata = &v
	}
	cp.Frames = append([]Frame(nil), r.Frames...)
	return &cp
}

// OwnedPaths lists every on-disk resource the record owns, in release order.
func (r *Record) OwnedPaths() []string {
	var paths []string
	if r.PreviewPath != "" {
		paths = append(paths, r.PreviewPath)
	}
	if r.SourcePath != "" {
		paths = append(paths, r.SourcePath)
	}
	for _, f := range r.Frames {
		// A video parent mirrors its primary frame's preview; avoid listing
		// the same path twice.
		if f.PreviewPath != "" && f.PreviewPath != r.PreviewPath {
			paths = append(paths, f.PreviewPath)
		}
	}
	return paths
}
