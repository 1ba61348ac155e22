package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"media-forensics/internal/asset"
	"media-forensics/internal/dateinfer"
	"media-forensics/internal/logging"
	"media-forensics/internal/media"
	"media-forensics/internal/mediatypes"
	"media-forensics/internal/progress"
	"media-forensics/internal/registry"

	"github.com/google/uuid"
)

// ErrEmptyUpload is returned for uploads with no content.
var ErrEmptyUpload = errors.New("empty upload")

// ErrInvalidLink is returned for link submissions that do not parse as an
// absolute http(s) URL.
var ErrInvalidLink = errors.New("invalid link")

// Ingestor creates asset records from uploads and link submissions.
type Ingestor struct {
	store     *registry.Store
	previews  *media.PreviewGenerator
	progress  *progress.Runner
	dates     *dateinfer.Client
	uploadDir string
}

// New creates an Ingestor. uploadDir must exist and be writable.
func New(store *registry.Store, previews *media.PreviewGenerator, runner *progress.Runner, dates *dateinfer.Client, uploadDir string) *Ingestor {
	return &Ingestor{
		store:     store,
		previews:  previews,
		progress:  runner,
		dates:     dates,
		uploadDir: uploadDir,
	}
}

// FromUpload registers an uploaded file. The source bytes are retained on
// disk for later analysis; a preview is rendered synchronously so the
// response can reference it. The upload progress counter and the base64
// mirror are populated in the background.
func (in *Ingestor) FromUpload(ctx context.Context, filename, declaredMIME string, r io.Reader) (*asset.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	id := uuid.NewString()
	kind := mediatypes.Classify(declaredMIME, filename)

	// Browsers derive the declared MIME from the extension, so a renamed
	// file lies twice. A conclusive magic-byte sniff wins over both.
	if sniffed := mediatypes.SniffKind(data); sniffed != mediatypes.KindOther && sniffed != kind {
		logging.Warn("Upload %q declared %s but content is %s; classifying by content", filename, kind, sniffed)
		kind = sniffed
	}

	sourcePath, err := in.retainSource(id, filename, data)
	if err != nil {
		return nil, err
	}

	rec := asset.NewRecord(id, filepath.Base(filename), kind, int64(len(data)))
	rec.MimeType = declaredMIME
	rec.SourcePath = sourcePath

	switch kind {
	case mediatypes.KindImage:
		if previewPath, err := in.previews.FromImageBytes(id, data); err != nil {
			logging.Warn("Preview generation failed for %s: %v", id, err)
		} else {
			rec.PreviewPath = previewPath
		}
	case mediatypes.KindVideo:
		if previewPath, err := in.previews.FromVideoFile(id, sourcePath); err != nil {
			logging.Warn("Video preview generation failed for %s: %v", id, err)
		} else {
			rec.PreviewPath = previewPath
		}
	}

	in.store.Put(rec)
	in.startProgress(id)

	// Base64 is only needed by providers that inline bytes; populate it off
	// the request path.
	if kind == mediatypes.KindImage {
		go in.populateBase64(id, data)
	}

	logging.Info("Ingested %s asset %s (%s, %d bytes)", kind, id, rec.Name, rec.Size)
	return rec.Clone(), nil
}

// FromLink registers a link-submitted asset. No bytes are fetched; the
// record is immediately complete with the URL as its source. Publication
// date inference runs in the background when enabled.
func (in *Ingestor) FromLink(ctx context.Context, rawURL string) (*asset.Record, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrInvalidLink
	}

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidLink
	}

	id := uuid.NewString()
	name := nameFromURL(u)
	kind := mediatypes.ClassifyExtension(u.Path)

	rec := asset.NewRecord(id, name, kind, 0)
	rec.SourceURL = rawURL
	rec.UploadProgress = 100
	rec.AnalysisState = asset.StateComplete

	in.store.Put(rec)

	if in.dates != nil {
		go in.populatePublishedDate(id, rawURL)
	}

	logging.Info("Registered link asset %s (%s)", id, name)
	return rec.Clone(), nil
}

// retainSource writes the upload to the cache directory, keyed by record id
// so deletes can release it without tracking the original filename.
func (in *Ingestor) retainSource(id, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	sourcePath := filepath.Join(in.uploadDir, id+ext)
	if err := os.WriteFile(sourcePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to retain upload: %w", err)
	}
	return sourcePath, nil
}

// startProgress runs the cosmetic upload counter for id. The counter stops
// itself once the record disappears from the registry.
func (in *Ingestor) startProgress(id string) {
	if in.progress == nil {
		return
	}
	in.progress.Start(id, func(pct int) bool {
		err := in.store.Update(id, func(rec *asset.Record) {
			rec.UploadProgress = pct
		})
		return err == nil
	})
}

func (in *Ingestor) populateBase64(id string, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	if err := in.store.Update(id, func(rec *asset.Record) {
		rec.Base64 = encoded
	}); err != nil {
		logging.Debug("Base64 population skipped for %s: record gone", id)
	}
}

func (in *Ingestor) populatePublishedDate(id, rawURL string) {
	date := in.dates.Infer(context.Background(), rawURL)
	if date == "" {
		return
	}
	if err := in.store.Update(id, func(rec *asset.Record) {
		rec.PublishedDate = date
	}); err != nil {
		logging.Debug("Published date skipped for %s: record gone", id)
	}
}

// nameFromURL derives a display name from the last URL path segment,
// falling back to the host when the path is empty or opaque.
func nameFromURL(u *url.URL) string {
	segment := path.Base(u.Path)
	if segment != "" && segment != "/" && segment != "." {
		return segment
	}
	return u.Host
}
