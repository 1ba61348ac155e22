package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}

func TestFromImageBytes(t *testing.T) {
	g := NewPreviewGenerator(t.TempDir())

	path, err := g.FromImageBytes("rec-1", testPNG(t, 64, 48))
	if err != nil {
		t.Fatalf("FromImageBytes: %v", err)
	}
	if filepath.Dir(path) != g.Dir() {
		t.Errorf("preview written outside cache dir: %s", path)
	}
	if filepath.Ext(path) != ".jpg" {
		t.Errorf("preview extension = %q, want .jpg", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading preview: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("preview is not a decodable JPEG: %v", err)
	}
}

func TestFromImageBytesFitsBoundingBox(t *testing.T) {
	g := NewPreviewGenerator(t.TempDir())

	path, err := g.FromImageBytes("big", testPNG(t, PreviewSize*3, PreviewSize*2))
	if err != nil {
		t.Fatalf("FromImageBytes: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening preview: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding preview config: %v", err)
	}
	if cfg.Width > PreviewSize || cfg.Height > PreviewSize {
		t.Errorf("preview %dx%d exceeds bounding box %d", cfg.Width, cfg.Height, PreviewSize)
	}
	// Fit preserves aspect ratio; a 3:2 source stays 3:2.
	if cfg.Width != PreviewSize {
		t.Errorf("width = %d, want %d", cfg.Width, PreviewSize)
	}
}

func TestFromImageBytesRejectsGarbage(t *testing.T) {
	g := NewPreviewGenerator(t.TempDir())

	if _, err := g.FromImageBytes("bad", []byte("definitely not an image")); err == nil {
		t.Error("expected error for undecodable bytes")
	}
}

func TestWriteFrame(t *testing.T) {
	g := NewPreviewGenerator(t.TempDir())
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))

	path, err := g.WriteFrame("rec-1-frame-0", img)
	if err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("frame preview not on disk: %v", err)
	}
}

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage(testPNG(t, 20, 10), PreviewSize, PreviewSize)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("decoded bounds = %dx%d, want 20x10", b.Dx(), b.Dy())
	}

	if _, err := DecodeImage([]byte{0x00, 0x01}, PreviewSize, PreviewSize); err == nil {
		t.Error("expected error for garbage bytes")
	}
}
