package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-forensics/internal/asset"
	"media-forensics/internal/database"
	"media-forensics/internal/exifmeta"
	"media-forensics/internal/filesystem"
	"media-forensics/internal/frames"
	"media-forensics/internal/logging"
	"media-forensics/internal/mediatypes"
	"media-forensics/internal/metrics"
	"media-forensics/internal/progress"
	"media-forensics/internal/providers"
	"media-forensics/internal/registry"
)

// ErrNotFound is returned when the target record does not exist.
var ErrNotFound = registry.ErrNotFound

// Orchestrator owns the analysis state machine for every record.
type Orchestrator struct {
	store     *registry.Store
	extractor *frames.Extractor
	adapters  []providers.Adapter
	progress  *progress.Runner
	history   *database.Database

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Orchestrator. history may be nil when persistence is
// unavailable; completed analyses are then simply not recorded.
func New(store *registry.Store, extractor *frames.Extractor, adapters []providers.Adapter, runner *progress.Runner, history *database.Database) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:     store,
		extractor: extractor,
		adapters:  adapters,
		progress:  runner,
		history:   history,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Stop cancels in-flight provider calls and waits for their settlement
// goroutines to drain.
func (o *Orchestrator) Stop() {
	o.cancel()
	o.wg.Wait()
}

// Analyze triggers analysis for id. The trigger is idempotent: a record
// that is already loading or complete is left untouched. Every wired
// provider is requested exactly once per run and settles independently.
func (o *Orchestrator) Analyze(id string) error {
	started := false
	var gen uint64
	err := o.store.Update(id, func(rec *asset.Record) {
		if rec.AnalysisState != asset.StateIdle {
			return
		}
		rec.Generation++
		gen = rec.Generation
		rec.AnalysisState = asset.StateLoading
		rec.AnalysisError = ""
		rec.Failed = false

		rec.Provider(asset.ProviderMetadata).Requested = true
		rec.Provider(asset.ProviderMetadata).Loading = true
		for _, a := range o.adapters {
			ps := rec.Provider(a.ID())
			ps.Requested = true
			ps.Loading = true
			ps.Error = ""
		}
		started = true
	})
	if err != nil {
		return err
	}
	if !started {
		logging.Debug("Analysis re-trigger suppressed for %s", id)
		return nil
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(id, gen)
	}()
	return nil
}

// run prepares the artifact (extracting frames for videos first) and fans
// out to the metadata extractor and every adapter. gen stamps every merge
// this run performs.
func (o *Orchestrator) run(id string, gen uint64) {
	rec, err := o.store.Get(id)
	if err != nil {
		logging.Debug("Analysis aborted for %s: record gone", id)
		return
	}

	if rec.Kind == mediatypes.KindVideo && len(rec.Frames) == 0 {
		if err := o.extractFrames(rec, gen); err != nil {
			o.failRun(id, gen, fmt.Sprintf("frame extraction failed: %v", err))
			return
		}
		// Reload: extraction merged frames into the record.
		rec, err = o.store.Get(id)
		if err != nil {
			return
		}
	}

	art, err := o.buildArtifact(rec)
	if err != nil {
		o.failRun(id, gen, fmt.Sprintf("artifact unavailable: %v", err))
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runMetadata(id, gen, art)
	}()

	for _, a := range o.adapters {
		o.wg.Add(1)
		go func(a providers.Adapter) {
			defer o.wg.Done()
			outcome, err := a.Analyze(o.ctx, art)
			o.settle(id, gen, a.ID(), outcome, err)
		}(a)
	}
}

// extractFrames samples stills from the video source and merges them into
// the record. The first frame's preview and base64 are mirrored to the
// record level so image-oriented consumers work unchanged.
func (o *Orchestrator) extractFrames(rec *asset.Record, gen uint64) error {
	if rec.SourcePath == "" {
		return errors.New("no retained source file")
	}

	result, err := o.extractor.Extract(o.ctx, rec.ID, rec.SourcePath, o.extractor.DefaultCount())
	if err != nil {
		return err
	}

	assetFrames := make([]asset.Frame, 0, len(result.Frames))
	for _, f := range result.Frames {
		assetFrames = append(assetFrames, asset.Frame{
			ID:          fmt.Sprintf("%s-frame-%d", rec.ID, f.Index),
			ParentID:    rec.ID,
			Index:       f.Index,
			TimestampMS: f.TimestampMS,
			PreviewPath: f.PreviewPath,
			Base64:      f.Base64,
			SourceURL:   rec.SourceURL,
		})
	}

	stale := false
	err = o.store.Update(rec.ID, func(r *asset.Record) {
		if r.Generation != gen {
			stale = true
			return
		}
		r.DurationSeconds = result.DurationSeconds
		r.Frames = assetFrames
		if r.PreviewPath == "" && len(assetFrames) > 0 {
			r.PreviewPath = assetFrames[0].PreviewPath
		}
		if r.Base64 == "" && len(assetFrames) > 0 {
			r.Base64 = assetFrames[0].Base64
		}
	})
	if err != nil || stale {
		// Record deleted or run superseded mid-extraction: the frames are
		// orphaned, release them here since the registry never took them.
		registry.ReleasePaths(result.OwnedPaths())
		if err != nil {
			return err
		}
		return errors.New("run superseded")
	}
	return nil
}

// buildArtifact snapshots the record into the read-only form adapters see.
func (o *Orchestrator) buildArtifact(rec *asset.Record) (providers.Artifact, error) {
	art := providers.Artifact{
		RecordID:  rec.ID,
		Kind:      rec.Kind,
		Name:      rec.Name,
		SourceURL: rec.SourceURL,
	}

	if len(rec.Frames) > 0 {
		for _, f := range rec.Frames {
			data, err := base64.StdEncoding.DecodeString(f.Base64)
			if err != nil {
				return art, fmt.Errorf("frame %d: %w", f.Index, err)
			}
			art.Frames = append(art.Frames, providers.FrameArtifact{
				Index:       f.Index,
				TimestampMS: f.TimestampMS,
				Bytes:       data,
				Base64:      f.Base64,
			})
		}
		art.Bytes = art.Frames[0].Bytes
		art.Base64 = art.Frames[0].Base64
		return art, nil
	}

	if rec.SourcePath != "" {
		// The upload cache may sit on a network volume.
		data, err := filesystem.ReadFileWithRetry(rec.SourcePath, filesystem.DefaultRetryConfig())
		if err != nil {
			return art, err
		}
		art.Bytes = data
		art.Base64 = rec.Base64
		return art, nil
	}

	if rec.Base64 != "" {
		data, err := base64.StdEncoding.DecodeString(rec.Base64)
		if err != nil {
			return art, err
		}
		art.Bytes = data
		art.Base64 = rec.Base64
		return art, nil
	}

	return art, errors.New("no source bytes")
}

// runMetadata settles the built-in EXIF extractor like any other provider.
func (o *Orchestrator) runMetadata(id string, gen uint64, art providers.Artifact) {
	start := time.Now()
	summary := exifmeta.Summarize(art.Bytes)
	metrics.ProviderDuration.WithLabelValues(string(asset.ProviderMetadata)).Observe(time.Since(start).Seconds())

	o.settleMetadata(id, gen, summary)
}

func (o *Orchestrator) settleMetadata(id string, gen uint64, summary asset.MetadataSummary) {
	finalized := false
	stale := false
	var completed *asset.Record

	err := o.store.Update(id, func(rec *asset.Record) {
		if rec.Generation != gen {
			stale = true
			return
		}
		rec.Metadata = &summary
		ps := rec.Provider(asset.ProviderMetadata)
		ps.Loading = false
		ps.SettledAt = time.Now().UTC()
		finalized, completed = o.maybeFinalize(rec)
	})
	if err != nil {
		logging.Debug("Metadata settlement discarded for %s: record gone", id)
		return
	}
	if stale {
		logging.Debug("Metadata settlement discarded for %s: run superseded", id)
		return
	}
	metrics.ProviderSettlesTotal.WithLabelValues(string(asset.ProviderMetadata), "success").Inc()
	if finalized {
		o.afterFinalize(completed)
	}
}

// settle merges one adapter settlement into the record. A settlement is
// discarded when the record is gone, or when its generation stamp shows the
// run was superseded by a retry while the provider call was in flight.
func (o *Orchestrator) settle(id string, gen uint64, pid asset.ProviderID, outcome *providers.Outcome, settleErr error) {
	status := "success"
	if settleErr != nil {
		status = "error"
	} else if outcome != nil && outcome.Skipped {
		status = "skipped"
	}

	finalized := false
	stale := false
	var completed *asset.Record

	err := o.store.Update(id, func(rec *asset.Record) {
		if rec.Generation != gen {
			stale = true
			return
		}
		ps := rec.Provider(pid)
		ps.Loading = false
		ps.SettledAt = time.Now().UTC()

		if settleErr != nil {
			ps.Error = settleErr.Error()
		} else if outcome != nil {
			o.mergeOutcome(rec, outcome)
		}

		finalized, completed = o.maybeFinalize(rec)
	})
	if err != nil {
		logging.Debug("Settlement for %s/%s discarded: record gone", id, pid)
		return
	}
	if stale {
		logging.Debug("Settlement for %s/%s discarded: run superseded", id, pid)
		return
	}

	metrics.ProviderSettlesTotal.WithLabelValues(string(pid), status).Inc()
	if settleErr != nil {
		logging.Warn("Provider %s failed for %s: %v", pid, id, settleErr)
	}
	if finalized {
		o.afterFinalize(completed)
	}
}

// mergeOutcome copies the populated result slot into the record. AI frame
// confidences are fanned back out to the stored frames by index.
func (o *Orchestrator) mergeOutcome(rec *asset.Record, outcome *providers.Outcome) {
	if outcome.AIDetection != nil {
		rec.AIDetection = outcome.AIDetection
		for _, s := range outcome.AIDetection.FrameScores {
			for i := range rec.Frames {
				if rec.Frames[i].Index == s.Index {
					rec.Frames[i].AIConfidence = s.Confidence
					rec.Frames[i].HasConfidence = true
					break
				}
			}
		}
	}
	if outcome.Circulation != nil {
		rec.Circulation = outcome.Circulation
	}
	if outcome.Geolocation != nil {
		rec.Geolocation = outcome.Geolocation
	}
}

// maybeFinalize applies the all-settle join. Runs inside a registry update.
// A runtime failure of the primary AI-detection provider returns the record
// to idle with the error surfaced; any other mix of results completes.
func (o *Orchestrator) maybeFinalize(rec *asset.Record) (bool, *asset.Record) {
	if rec.AnalysisState != asset.StateLoading || !rec.AllSettled() {
		return false, nil
	}

	if aiErr := rec.Provider(asset.ProviderAIDetection).Error; aiErr != "" {
		rec.AnalysisState = asset.StateIdle
		rec.AnalysisError = fmt.Sprintf("AI detection failed: %s", aiErr)
		rec.Failed = true
		return true, nil
	}

	rec.AnalysisState = asset.StateComplete
	rec.AnalysisError = ""
	return true, rec.Clone()
}

// afterFinalize records run-level metrics and persists completed analyses.
// completed is nil when the run failed.
func (o *Orchestrator) afterFinalize(completed *asset.Record) {
	if completed == nil {
		metrics.AnalysesTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.AnalysesTotal.WithLabelValues("complete").Inc()
	logging.Info("Analysis complete for %s (%s)", completed.ID, completed.Name)

	if o.history == nil {
		return
	}
	entry := database.EntryFromRecord(completed)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.history.SaveAnalysis(ctx, entry); err != nil {
		logging.Warn("Failed to persist analysis for %s: %v", completed.ID, err)
	}
}

// failRun aborts a run before fan-out: the record returns to idle with the
// error surfaced and every in-flight flag cleared. A superseded run must
// not clobber the state its replacement owns.
func (o *Orchestrator) failRun(id string, gen uint64, msg string) {
	stale := false
	err := o.store.Update(id, func(rec *asset.Record) {
		if rec.Generation != gen {
			stale = true
			return
		}
		rec.AnalysisState = asset.StateIdle
		rec.AnalysisError = msg
		rec.Failed = true
		for _, ps := range rec.Providers {
			ps.Loading = false
		}
	})
	if err != nil || stale {
		return
	}
	metrics.AnalysesTotal.WithLabelValues("failed").Inc()
	logging.Warn("Analysis failed for %s: %s", id, msg)
}

// Retry clears every provider flag, result and error, returns the record to
// idle, and restarts the cosmetic progress counter from zero. Extracted
// frames are kept so a retried video skips re-extraction.
func (o *Orchestrator) Retry(id string) error {
	if o.progress != nil {
		o.progress.Stop(id)
	}

	err := o.store.Update(id, func(rec *asset.Record) {
		rec.ResetAnalysis()
		rec.Generation++
	})
	if err != nil {
		return err
	}

	o.startProgress(id)
	logging.Info("Analysis reset for %s", id)
	return nil
}

// Delete removes the record and releases every owned resource exactly once.
// Settlements still in flight discard themselves on their next merge.
func (o *Orchestrator) Delete(id string) error {
	if o.progress != nil {
		o.progress.Stop(id)
	}
	if err := o.store.Delete(id); err != nil {
		return err
	}
	logging.Info("Deleted record %s", id)
	return nil
}

func (o *Orchestrator) startProgress(id string) {
	if o.progress == nil {
		return
	}
	o.progress.Start(id, func(pct int) bool {
		err := o.store.Update(id, func(rec *asset.Record) {
			rec.UploadProgress = pct
		})
		return err == nil
	})
}
