package media

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"media-forensics/internal/logging"
	"media-forensics/internal/metrics"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// PreviewSize is the bounding box for generated previews.
	PreviewSize = 480

	// previewQuality is the JPEG quality for preview encoding.
	previewQuality = 80
)

// PreviewGenerator writes fixed-size JPEG previews into a cache directory.
type PreviewGenerator struct {
	dir string
	mu  sync.Mutex
}

// NewPreviewGenerator creates a generator rooted at dir, creating it if
// needed.
func NewPreviewGenerator(dir string) *PreviewGenerator {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Warn("PreviewGenerator: failed to create dir %s: %v", dir, err)
	}
	return &PreviewGenerator{dir: dir}
}

// Dir returns the preview cache directory.
func (g *PreviewGenerator) Dir() string {
	return g.dir
}

// FromImageBytes decodes image bytes, fits them into the preview bounding
// box, and writes the JPEG. It returns the owned file path.
func (g *PreviewGenerator) FromImageBytes(name string, data []byte) (string, error) {
	start := time.Now()

	img, err := DecodeImage(data, PreviewSize, PreviewSize)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("image", "error").Inc()
		return "", fmt.Errorf("preview decode failed: %w", err)
	}

	path, err := g.write(name, img)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("image", "error").Inc()
		return "", err
	}

	metrics.PreviewGenerationsTotal.WithLabelValues("image", "success").Inc()
	metrics.PreviewGenerationDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	return path, nil
}

// FromVideoFile grabs a representative frame from a video file with ffmpeg
// and writes the preview JPEG. It returns the owned file path.
func (g *PreviewGenerator) FromVideoFile(name, videoPath string) (string, error) {
	start := time.Now()

	img, err := GrabVideoFrame(videoPath, 1.0)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("video", "error").Inc()
		return "", fmt.Errorf("video preview failed: %w", err)
	}

	path, err := g.write(name, img)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("video", "error").Inc()
		return "", err
	}

	metrics.PreviewGenerationsTotal.WithLabelValues("video", "success").Inc()
	metrics.PreviewGenerationDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
	return path, nil
}

// WriteFrame fits an already-decoded frame into the preview bounding box
// and writes it under the given name.
func (g *PreviewGenerator) WriteFrame(name string, img image.Image) (string, error) {
	return g.write(name, img)
}

func (g *PreviewGenerator) write(name string, img image.Image) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	thumb := imaging.Fit(img, PreviewSize, PreviewSize, imaging.Lanczos)
	path := filepath.Join(g.dir, name+".jpg")

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write preview %s: %w", path, err)
	}
	return path, nil
}

// DecodeImage decodes image bytes into an image.Image. libvips is tried
// first for decode-time shrinking; pure-Go decoders (including webp) are
// the fallback.
func DecodeImage(data []byte, targetWidth, targetHeight int) (image.Image, error) {
	if img, err := decodeWithVips(data, targetWidth, targetHeight); err == nil {
		return img, nil
	} else {
		logging.Debug("vips decode unavailable or failed: %v, falling back", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	img, _, err = image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// GrabVideoFrame rasterizes the frame at offsetSeconds from a video file.
// A failed seek falls back to the first decodable frame, matching how
// short clips behave.
func GrabVideoFrame(videoPath string, offsetSeconds float64) (image.Image, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	logging.Debug("GrabVideoFrame: using %s for %s", ffmpegPath, videoPath)

	img, err := runFFmpegFrame(videoPath, offsetSeconds)
	if err == nil {
		return img, nil
	}
	logging.Debug("seeked frame grab failed for %s: %v, retrying from start", videoPath, err)

	return runFFmpegFrame(videoPath, -1)
}

func runFFmpegFrame(videoPath string, offsetSeconds float64) (image.Image, error) {
	args := []string{}
	if offsetSeconds >= 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offsetSeconds))
	}
	args = append(args,
		"-i", videoPath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.Command("ffmpeg", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", videoPath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
