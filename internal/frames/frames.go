package frames

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"media-forensics/internal/logging"
	"media-forensics/internal/memory"
	"media-forensics/internal/metrics"
	"media-forensics/internal/workers"

	"github.com/disintegration/imaging"
)

const (
	// DefaultFrameCount is how many stills are sampled when the caller does
	// not ask for a specific count.
	DefaultFrameCount = 2

	// FrameSize is the bounding box for extracted frame bitmaps.
	FrameSize = 640

	// frameQuality is the JPEG quality for extracted frames.
	frameQuality = 85

	// lastFrameEpsilon keeps the final seek strictly before end of stream.
	lastFrameEpsilon = 0.1
)

// Frame is one extracted still, in source order.
type Frame struct {
	Index       int
	TimestampMS int64
	JPEG        []byte
	Base64      string
	PreviewPath string
}

// Result is a completed extraction.
type Result struct {
	DurationSeconds float64
	Frames          []Frame
}

// OwnedPaths lists the preview files the extraction created, so a caller
// whose record vanished mid-extraction can release them.
func (r *Result) OwnedPaths() []string {
	paths := make([]string, 0, len(r.Frames))
	for _, f := range r.Frames {
		if f.PreviewPath != "" {
			paths = append(paths, f.PreviewPath)
		}
	}
	return paths
}

// Extractor decodes video frames via ffprobe/ffmpeg.
type Extractor struct {
	dir          string
	defaultCount int
	monitor      *memory.Monitor
}

// New creates an Extractor writing frame previews into dir. monitor may be
// nil; when set, extraction pauses under critical memory pressure.
func New(dir string, defaultCount int, monitor *memory.Monitor) *Extractor {
	if defaultCount < 1 {
		defaultCount = DefaultFrameCount
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Warn("frame extractor: failed to create dir %s: %v", dir, err)
	}
	return &Extractor{dir: dir, defaultCount: defaultCount, monitor: monitor}
}

// DefaultCount returns the configured frame count.
func (e *Extractor) DefaultCount() int {
	return e.defaultCount
}

// Positions returns the seek offsets (seconds) for n evenly spaced frames
// over duration d: d*i/n for i in [0, n). Degenerate inputs (non-finite or
// non-positive duration, n <= 1) collapse to a single frame at 0. Every
// position lies in [0, d).
func Positions(d float64, n int) []float64 {
	if n <= 1 || math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return []float64{0}
	}
	limit := d - lastFrameEpsilon
	if limit < 0 {
		limit = 0
	}
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		pos := d * float64(i) / float64(n)
		if pos > limit {
			pos = limit
		}
		out = append(out, pos)
	}
	return out
}

// Extract samples frameCount frames from the video at videoPath. recordID
// namespaces the preview files. frameCount <= 0 uses the default.
func (e *Extractor) Extract(ctx context.Context, recordID, videoPath string, frameCount int) (*Result, error) {
	start := time.Now()
	if frameCount <= 0 {
		frameCount = e.defaultCount
	}

	duration, err := e.probeDuration(ctx, videoPath)
	if err != nil {
		metrics.FrameExtractionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("duration probe failed: %w", err)
	}
	logging.Debug("extracting %d frames from %s (duration %.2fs)", frameCount, videoPath, duration)

	positions := Positions(duration, frameCount)
	concurrency := workers.ForMixed(len(positions))

	res := &Result{DurationSeconds: duration}
	extracted := make([]*Frame, len(positions))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, pos := range positions {
		if e.monitor != nil && !e.monitor.WaitIfPaused() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, pos float64) {
			defer wg.Done()
			defer func() { <-sem }()

			img, err := e.grabFrame(ctx, videoPath, pos)
			if err != nil {
				// One bad seek is not fatal; keep going with the rest.
				logging.Warn("frame %d seek at %.2fs failed for %s: %v", i, pos, videoPath, err)
				metrics.FrameSeekFailures.Inc()
				return
			}

			frame, err := e.encodeFrame(recordID, i, pos, img)
			if err != nil {
				logging.Warn("frame %d encode failed for %s: %v", i, videoPath, err)
				return
			}
			extracted[i] = &frame
		}(i, pos)
	}
	wg.Wait()

	// Failed seeks leave gaps; keep survivors in source order.
	for _, f := range extracted {
		if f != nil {
			res.Frames = append(res.Frames, *f)
		}
	}

	if len(res.Frames) == 0 {
		metrics.FrameExtractionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no usable frames extracted from %s", videoPath)
	}

	metrics.FrameExtractionsTotal.WithLabelValues("success").Inc()
	metrics.FrameExtractionDuration.Observe(time.Since(start).Seconds())
	metrics.FramesExtracted.Add(float64(len(res.Frames)))
	return res, nil
}

func (e *Extractor) encodeFrame(recordID string, index int, pos float64, img image.Image) (Frame, error) {
	fitted := imaging.Fit(img, FrameSize, FrameSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(frameQuality)); err != nil {
		return Frame{}, fmt.Errorf("jpeg encode: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s-frame-%d.jpg", recordID, index))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return Frame{}, fmt.Errorf("write frame preview: %w", err)
	}

	return Frame{
		Index:       index,
		TimestampMS: int64(pos * 1000),
		JPEG:        buf.Bytes(),
		Base64:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		PreviewPath: path,
	}, nil
}

// probeDuration reads the container duration with ffprobe. A missing or
// unparsable duration is reported as 0, which callers treat as degenerate.
func (e *Extractor) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			Duration string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return 0, fmt.Errorf("ffprobe output parse: %w", err)
	}

	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		return d, nil
	}
	for _, s := range probe.Streams {
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
			return d, nil
		}
	}
	return 0, nil
}

func (e *Extractor) grabFrame(ctx context.Context, videoPath string, offsetSeconds float64) (image.Image, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", offsetSeconds),
		"-i", videoPath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
