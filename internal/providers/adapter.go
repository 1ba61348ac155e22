package providers

import (
	"context"
	"fmt"
	"time"

	"media-forensics/internal/asset"
	"media-forensics/internal/mediatypes"
)

// SkipDelay is how long a disabled adapter waits before settling with a
// skipped outcome, so the UI shows a brief in-flight state instead of an
// instant no-op.
const SkipDelay = 400 * time.Millisecond

// FrameArtifact is one derived still handed to an adapter.
type FrameArtifact struct {
	Index       int
	TimestampMS int64
	Bytes       []byte
	Base64      string
}

// Artifact is the read-only snapshot of an asset handed to adapters.
// Adapters never see the live record.
type Artifact struct {
	RecordID  string
	Kind      mediatypes.Kind
	Name      string
	SourceURL string

	// Bytes holds the primary image: the image itself, or the first
	// extracted frame of a video.
	Bytes  []byte
	Base64 string

	// Frames is populated for video assets, in source order.
	Frames []FrameArtifact
}

// Outcome is an adapter settlement. Exactly one result slot is populated,
// matching the adapter that produced it; Skipped marks an intentionally
// absent result.
type Outcome struct {
	AIDetection *asset.AIDetectionResult
	Circulation *asset.CirculationResult
	Geolocation *asset.GeolocationResult
	Skipped     bool
}

// Adapter is the uniform trigger-once/settle-once analysis contract.
type Adapter interface {
	ID() asset.ProviderID
	Analyze(ctx context.Context, art Artifact) (*Outcome, error)
}

// FailureKind classifies adapter errors for the record-level taxonomy.
type FailureKind string

const (
	// FailureNetwork covers transport errors and non-2xx responses.
	FailureNetwork FailureKind = "network"
	// FailureResponse covers malformed or incomplete provider responses.
	FailureResponse FailureKind = "response"
	// FailureInput covers artifacts the adapter cannot analyze.
	FailureInput FailureKind = "input"
)

// Failure is a classified adapter error.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure wraps err with a failure classification.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// waitSkip sleeps the fixed skip delay, honoring cancellation.
func waitSkip(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
