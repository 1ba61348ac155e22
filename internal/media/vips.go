package media

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"media-forensics/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

// libvips is process-global; guard init and shutdown behind one lock.
var vipsState struct {
	sync.Mutex
	initialized bool
	available   bool
}

// InitVips initializes libvips. Call once at startup.
func InitVips() error {
	vipsState.Lock()
	defer vipsState.Unlock()

	if vipsState.initialized {
		return nil
	}

	vips.LoggingSettings(vipsLogHandler, vipsLogLevel())

	// Previews are small and generated one at a time, so keep the vips
	// operation cache modest and leave the memory headroom to ffmpeg.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsState.initialized = true
	vipsState.available = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsState.Lock()
	defer vipsState.Unlock()

	if vipsState.initialized {
		vips.Shutdown()
		vipsState.initialized = false
		vipsState.available = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether libvips is initialized.
func IsVipsAvailable() bool {
	vipsState.Lock()
	defer vipsState.Unlock()
	return vipsState.available
}

// vipsLogLevel maps our log level to a vips verbosity; vips is chatty,
// so each tier is one notch quieter than ours.
func vipsLogLevel() vips.LogLevel {
	switch logging.GetLevel() {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	default:
		return vips.LogLevelCritical
	}
}

func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// decodeWithVips decodes image bytes with decode-time shrinking toward
// the target bounding box, then hands the result back as an image.Image
// for the imaging-based pipeline.
func decodeWithVips(data []byte, targetWidth, targetHeight int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	ref, err := vips.LoadImageFromBuffer(data, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.Thumbnail(targetWidth, targetHeight, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	out, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        95,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(out), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}
