package orchestrator

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"media-forensics/internal/asset"
	"media-forensics/internal/frames"
	"media-forensics/internal/mediatypes"
	"media-forensics/internal/providers"
	"media-forensics/internal/registry"
)

type fakeAdapter struct {
	id      asset.ProviderID
	outcome *providers.Outcome
	err     error
	delay   time.Duration
	calls   int32
}

func (f *fakeAdapter) ID() asset.ProviderID { return f.id }

func (f *fakeAdapter) Analyze(ctx context.Context, _ providers.Artifact) (*providers.Outcome, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.outcome, f.err
}

func (f *fakeAdapter) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func seedImageRecord(t *testing.T, store *registry.Store) *asset.Record {
	t.Helper()
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "image.jpg")
	// exifmeta tolerates arbitrary bytes; a real image is not required here.
	if err := os.WriteFile(sourcePath, []byte("\xFF\xD8\xFF\xE0 not a real jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := asset.NewRecord("rec-1", "image.jpg", mediatypes.KindImage, 24)
	rec.SourcePath = sourcePath
	store.Put(rec)
	return rec
}

func newTestOrchestrator(store *registry.Store, adapters ...providers.Adapter) *Orchestrator {
	extractor := frames.New(os.TempDir(), 2, nil)
	return New(store, extractor, adapters, nil, nil)
}

func waitForState(t *testing.T, store *registry.Store, id string, state asset.AnalysisState) *asset.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := store.Get(id)
		if err == nil && rec.AnalysisState == state {
			return rec
		}
		time.Sleep(2 * time.Millisecond)
	}
	rec, err := store.Get(id)
	t.Fatalf("record %s never reached state %q (rec=%+v, err=%v)", id, state, rec, err)
	return nil
}

func TestAnalyzeAllSettleCompletes(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	ai := &fakeAdapter{
		id: asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{
			Confidence: 85,
			Severity:   asset.SeverityError,
			Label:      asset.LabelLikelyAI,
		}},
	}
	circ := &fakeAdapter{
		id:      asset.ProviderCirculation,
		outcome: &providers.Outcome{Circulation: &asset.CirculationResult{MatchingPages: 3}},
	}
	geo := &fakeAdapter{
		id:      asset.ProviderGeolocation,
		outcome: &providers.Outcome{Geolocation: &asset.GeolocationResult{Found: true, Landmark: "Eiffel Tower"}},
	}

	o := newTestOrchestrator(store, ai, circ, geo)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got := waitForState(t, store, rec.ID, asset.StateComplete)

	if got.AIDetection == nil || got.AIDetection.Confidence != 85 {
		t.Errorf("AIDetection = %+v", got.AIDetection)
	}
	if got.Circulation == nil || got.Circulation.MatchingPages != 3 {
		t.Errorf("Circulation = %+v", got.Circulation)
	}
	if got.Geolocation == nil || got.Geolocation.Landmark != "Eiffel Tower" {
		t.Errorf("Geolocation = %+v", got.Geolocation)
	}
	if got.Metadata == nil {
		t.Error("Metadata not settled")
	}
	if got.AnalysisError != "" {
		t.Errorf("AnalysisError = %q", got.AnalysisError)
	}
	for _, ps := range got.Providers {
		if ps.Requested && ps.Loading {
			t.Error("provider still loading after completion")
		}
	}
}

func TestAnalyzeIdempotentWhileLoading(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	slow := &fakeAdapter{
		id:      asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{Confidence: 10}},
		delay:   50 * time.Millisecond,
	}

	o := newTestOrchestrator(store, slow)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// Re-triggers while loading must be suppressed.
	for i := 0; i < 5; i++ {
		if err := o.Analyze(rec.ID); err != nil {
			t.Fatalf("re-trigger Analyze: %v", err)
		}
	}

	waitForState(t, store, rec.ID, asset.StateComplete)

	if calls := slow.callCount(); calls != 1 {
		t.Errorf("adapter called %d times, want 1", calls)
	}
}

func TestAnalyzeCompleteIsTerminal(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	ai := &fakeAdapter{
		id:      asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{Confidence: 10}},
	}

	o := newTestOrchestrator(store, ai)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	waitForState(t, store, rec.ID, asset.StateComplete)

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze after complete: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if calls := ai.callCount(); calls != 1 {
		t.Errorf("adapter called %d times after terminal complete, want 1", calls)
	}
}

func TestAnalyzePrimaryFailureReturnsToIdle(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	ai := &fakeAdapter{
		id:  asset.ProviderAIDetection,
		err: providers.NewFailure(providers.FailureNetwork, os.ErrDeadlineExceeded),
	}
	circ := &fakeAdapter{
		id:      asset.ProviderCirculation,
		outcome: &providers.Outcome{Circulation: &asset.CirculationResult{MatchingPages: 1}},
	}

	o := newTestOrchestrator(store, ai, circ)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got := waitForState(t, store, rec.ID, asset.StateIdle)

	if got.AnalysisError == "" {
		t.Error("AnalysisError not surfaced")
	}
	if !got.Failed {
		t.Error("Failed flag not set")
	}
	// Non-primary results are preserved even when the run fails.
	if got.Circulation == nil || got.Circulation.MatchingPages != 1 {
		t.Errorf("Circulation = %+v", got.Circulation)
	}
}

func TestAnalyzeSecondaryFailureStillCompletes(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	ai := &fakeAdapter{
		id:      asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{Confidence: 42}},
	}
	geo := &fakeAdapter{
		id:  asset.ProviderGeolocation,
		err: providers.NewFailure(providers.FailureNetwork, os.ErrClosed),
	}

	o := newTestOrchestrator(store, ai, geo)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got := waitForState(t, store, rec.ID, asset.StateComplete)

	if got.Provider(asset.ProviderGeolocation).Error == "" {
		t.Error("geolocation error not recorded")
	}
	if got.AnalysisError != "" {
		t.Errorf("record-level AnalysisError = %q, want empty", got.AnalysisError)
	}
}

func TestAnalyzeSkippedAdapterCompletes(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	ai := &fakeAdapter{
		id: asset.ProviderAIDetection,
		outcome: &providers.Outcome{
			Skipped:     true,
			AIDetection: &asset.AIDetectionResult{Skipped: true},
		},
	}

	o := newTestOrchestrator(store, ai)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got := waitForState(t, store, rec.ID, asset.StateComplete)

	if got.AIDetection == nil || !got.AIDetection.Skipped {
		t.Errorf("AIDetection = %+v, want skipped", got.AIDetection)
	}
	if got.AnalysisError != "" {
		t.Errorf("AnalysisError = %q", got.AnalysisError)
	}
}

func TestDeleteDiscardsLateSettlements(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	slow := &fakeAdapter{
		id:      asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{Confidence: 99}},
		delay:   50 * time.Millisecond,
	}

	o := newTestOrchestrator(store, slow)

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := o.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The settlement lands after the delete and must be discarded.
	o.Stop()

	if _, err := store.Get(rec.ID); err != registry.ErrNotFound {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if store.Len() != 0 {
		t.Errorf("store not empty after delete: %d", store.Len())
	}
}

func TestDeleteReleasesOwnedFiles(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	o := newTestOrchestrator(store)
	defer o.Stop()

	if err := o.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(rec.SourcePath); !os.IsNotExist(err) {
		t.Errorf("source file not released: %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	store := registry.New()
	o := newTestOrchestrator(store)
	defer o.Stop()

	if err := o.Delete("nope"); err != registry.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRetryResetsAnalysis(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	ai := &fakeAdapter{
		id:      asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{Confidence: 85}},
	}

	o := newTestOrchestrator(store, ai)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	waitForState(t, store, rec.ID, asset.StateComplete)

	if err := o.Retry(rec.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AnalysisState != asset.StateIdle {
		t.Errorf("state after retry = %q, want idle", got.AnalysisState)
	}
	if got.AIDetection != nil {
		t.Error("AIDetection survived retry")
	}
	if got.UploadProgress != 0 {
		t.Errorf("UploadProgress = %d, want 0", got.UploadProgress)
	}
	for _, ps := range got.Providers {
		if ps.Requested || ps.Loading {
			t.Error("provider flags survived retry")
		}
	}

	// A retried record can be analyzed again.
	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze after retry: %v", err)
	}
	waitForState(t, store, rec.ID, asset.StateComplete)
	if calls := ai.callCount(); calls != 2 {
		t.Errorf("adapter called %d times, want 2", calls)
	}
}

func TestRetryDiscardsInFlightSettlement(t *testing.T) {
	store := registry.New()
	rec := seedImageRecord(t, store)

	slow := &fakeAdapter{
		id: asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{
			Confidence: 85,
			Severity:   asset.SeverityError,
			Label:      asset.LabelLikelyAI,
		}},
		delay: 150 * time.Millisecond,
	}

	o := newTestOrchestrator(store, slow)

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	// Reset while the provider call is still in flight. Its settlement
	// belongs to the superseded run and must not land on the reset record.
	if err := o.Retry(rec.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	o.Stop()

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AnalysisState != asset.StateIdle {
		t.Errorf("state = %q, want idle", got.AnalysisState)
	}
	if got.AIDetection != nil {
		t.Errorf("stale settlement reinstated AIDetection = %+v", got.AIDetection)
	}
	if got.AnalysisError != "" {
		t.Errorf("AnalysisError = %q, want empty", got.AnalysisError)
	}
	ps := got.Provider(asset.ProviderAIDetection)
	if ps.Requested || ps.Loading || ps.Error != "" {
		t.Errorf("provider state polluted by stale settlement: %+v", ps)
	}
}

func seedFramedVideoRecord(t *testing.T, store *registry.Store) *asset.Record {
	t.Helper()
	rec := asset.NewRecord("vid-1", "clip.mp4", mediatypes.KindVideo, 1024)
	for i := 0; i < 3; i++ {
		rec.Frames = append(rec.Frames, asset.Frame{
			ID:       rec.ID + "-frame-" + string(rune('0'+i)),
			ParentID: rec.ID,
			Index:    i,
			Base64:   base64.StdEncoding.EncodeToString([]byte{'f', byte('0' + i)}),
		})
	}
	store.Put(rec)
	return rec
}

func TestFrameScoresMergeByIndex(t *testing.T) {
	store := registry.New()
	rec := seedFramedVideoRecord(t, store)

	// Frame 1's score is missing, as after a scoring failure mid-run. The
	// surviving scores must land on frames 0 and 2, not on positions 0 and 1.
	ai := &fakeAdapter{
		id: asset.ProviderAIDetection,
		outcome: &providers.Outcome{AIDetection: &asset.AIDetectionResult{
			Confidence: 10,
			FrameScores: []asset.FrameScore{
				{Index: 0, Confidence: 10},
				{Index: 2, Confidence: 30},
			},
		}},
	}

	o := newTestOrchestrator(store, ai)
	defer o.Stop()

	if err := o.Analyze(rec.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	got := waitForState(t, store, rec.ID, asset.StateComplete)

	if !got.Frames[0].HasConfidence || got.Frames[0].AIConfidence != 10 {
		t.Errorf("frame 0 = %+v, want confidence 10", got.Frames[0])
	}
	if got.Frames[1].HasConfidence {
		t.Errorf("frame 1 received a score that belongs to frame 2: %+v", got.Frames[1])
	}
	if !got.Frames[2].HasConfidence || got.Frames[2].AIConfidence != 30 {
		t.Errorf("frame 2 = %+v, want confidence 30", got.Frames[2])
	}
}

func TestAnalyzeMissingRecord(t *testing.T) {
	store := registry.New()
	o := newTestOrchestrator(store)
	defer o.Stop()

	if err := o.Analyze("nope"); err != registry.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
