package handlers

import (
	"fmt"
	"time"

	"media-forensics/internal/database"
	"media-forensics/internal/ingest"
	"media-forensics/internal/orchestrator"
	"media-forensics/internal/registry"

	"github.com/gorilla/mux"
)

// maxUploadBytes caps multipart uploads at 256 MiB.
const maxUploadBytes = 256 << 20

type Handlers struct {
	store     *registry.Store
	ingestor  *ingest.Ingestor
	orch      *orchestrator.Orchestrator
	history   *database.Database
	startTime time.Time
}

func New(store *registry.Store, ingestor *ingest.Ingestor, orch *orchestrator.Orchestrator, history *database.Database) *Handlers {
	return &Handlers{
		store:     store,
		ingestor:  ingestor,
		orch:      orch,
		history:   history,
		startTime: time.Now(),
	}
}

// RegisterRoutes mounts every route on r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/assets", h.UploadAsset).Methods("POST")
	api.HandleFunc("/assets", h.ListAssets).Methods("GET")
	api.HandleFunc("/assets/link", h.SubmitLink).Methods("POST")
	api.HandleFunc("/assets/{id}", h.GetAsset).Methods("GET")
	api.HandleFunc("/assets/{id}", h.DeleteAsset).Methods("DELETE")
	api.HandleFunc("/assets/{id}/analyze", h.AnalyzeAsset).Methods("POST")
	api.HandleFunc("/assets/{id}/retry", h.RetryAsset).Methods("POST")
	api.HandleFunc("/assets/{id}/preview", h.GetPreview).Methods("GET")
	api.HandleFunc("/assets/{id}/frames/{frameId}/preview", h.GetFramePreview).Methods("GET")
	api.HandleFunc("/history", h.GetHistory).Methods("GET")
}

// previewURL resolves a record (or frame) identifier to its servable route.
func previewURL(recordID, frameID string) string {
	if frameID == "" {
		return fmt.Sprintf("/api/assets/%s/preview", recordID)
	}
	return fmt.Sprintf("/api/assets/%s/frames/%s/preview", recordID, frameID)
}
