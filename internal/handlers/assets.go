package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-forensics/internal/asset"
	"media-forensics/internal/filesystem"
	"media-forensics/internal/ingest"
	"media-forensics/internal/logging"
	"media-forensics/internal/registry"

	"github.com/gorilla/mux"
)

// UploadAsset accepts a multipart upload under the "file" field and
// registers it as a new asset record.
func (h *Handlers) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rec, err := h.ingestor.FromUpload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyUpload) {
			writeJSONError(w, "empty upload", http.StatusBadRequest)
			return
		}
		logging.Error("Upload failed: %v", err)
		writeJSONError(w, "upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, asset.BuildView(rec, previewURL))
}

// SubmitLink registers a link-submitted asset from a JSON body {"url": ...}.
func (h *Handlers) SubmitLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	rec, err := h.ingestor.FromLink(r.Context(), body.URL)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidLink) {
			writeJSONError(w, "invalid link", http.StatusBadRequest)
			return
		}
		logging.Error("Link submit failed: %v", err)
		writeJSONError(w, "link submit failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, asset.BuildView(rec, previewURL))
}

// ListAssets returns the view of every live record, newest first.
func (h *Handlers) ListAssets(w http.ResponseWriter, _ *http.Request) {
	records := h.store.List()
	views := make([]asset.View, 0, len(records))
	for _, rec := range records {
		views = append(views, asset.BuildView(rec, previewURL))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, views)
}

// GetAsset returns the view of a single record.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, asset.BuildView(rec, previewURL))
}

// AnalyzeAsset triggers analysis. The trigger is idempotent; re-triggering
// a loading or complete record is a successful no-op.
func (h *Handlers) AnalyzeAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.orch.Analyze(id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Analyze failed for %s: %v", id, err)
		writeJSONError(w, "analyze failed", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "accepted")
}

// RetryAsset clears all analysis state and returns the record to idle.
func (h *Handlers) RetryAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.orch.Retry(id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Retry failed for %s: %v", id, err)
		writeJSONError(w, "retry failed", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "reset")
}

// DeleteAsset removes the record and releases its resources.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.orch.Delete(id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Delete failed for %s: %v", id, err)
		writeJSONError(w, "delete failed", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "deleted")
}

// GetPreview serves the record-level preview image.
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if rec.PreviewPath == "" {
		writeJSONError(w, "no preview available", http.StatusNotFound)
		return
	}
	servePreviewFile(w, r, rec.PreviewPath)
}

// GetFramePreview serves one extracted frame's preview image.
func (h *Handlers) GetFramePreview(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	frameID := mux.Vars(r)["frameId"]
	for _, f := range rec.Frames {
		if f.ID == frameID && f.PreviewPath != "" {
			servePreviewFile(w, r, f.PreviewPath)
			return
		}
	}
	writeJSONError(w, "frame not found", http.StatusNotFound)
}

// servePreviewFile serves a cached preview JPEG. The stat goes through the
// NFS retry path since the preview cache may be network-mounted.
func servePreviewFile(w http.ResponseWriter, r *http.Request, path string) {
	if _, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig()); err != nil {
		logging.Warn("Preview file missing at %s: %v", path, err)
		writeJSONError(w, "preview unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}

// lookup fetches the record for the {id} route variable, writing a 404
// when it does not exist.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*asset.Record, bool) {
	id := mux.Vars(r)["id"]
	rec, err := h.store.Get(id)
	if err != nil {
		writeJSONError(w, "asset not found", http.StatusNotFound)
		return nil, false
	}
	return rec, true
}
