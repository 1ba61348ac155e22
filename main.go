package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-forensics/internal/asset"
	"media-forensics/internal/database"
	"media-forensics/internal/dateinfer"
	"media-forensics/internal/filesystem"
	"media-forensics/internal/frames"
	"media-forensics/internal/handlers"
	"media-forensics/internal/ingest"
	"media-forensics/internal/logging"
	"media-forensics/internal/media"
	"media-forensics/internal/memory"
	"media-forensics/internal/metrics"
	"media-forensics/internal/middleware"
	"media-forensics/internal/orchestrator"
	"media-forensics/internal/progress"
	"media-forensics/internal/providers"
	"media-forensics/internal/registry"
	"media-forensics/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Configure GOMEMLIMIT before significant allocations
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize image pipeline
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, falling back to pure-Go decoding: %v", err)
	}
	defer media.ShutdownVips()

	// Initialize history database. A failure here degrades the service
	// (no persisted history) rather than preventing startup.
	dbStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, config.DatabasePath)
	cancel()
	if err != nil {
		logging.Error("Failed to initialize history database, continuing without persistence: %v", err)
		db = nil
	} else {
		defer db.Close()
		startup.LogDatabaseInit(time.Since(dbStart))
	}

	// Label filesystem retry metrics by mounted volume
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"cache":    config.CacheDir,
		"database": config.DatabaseDir,
	}))

	// Memory backpressure for frame extraction
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	// Core state
	store := registry.New()
	runner := progress.NewRunner(progress.DefaultTick, progress.DefaultStep)
	previews := media.NewPreviewGenerator(config.PreviewDir)
	extractor := frames.New(config.FrameDir, config.FrameCount, monitor)
	startup.LogExtractorInit(config.FrameCount)

	// Analysis providers
	visionSource := providers.NewVisionSource(providers.VisionConfig{
		Enabled:         config.VisionEnabled,
		CredentialsFile: config.VisionCredentials,
	})
	defer visionSource.Close()

	adapters := []providers.Adapter{
		providers.NewAIDetector(providers.AIDetectorConfig{
			Enabled:  config.AIEnabled,
			Endpoint: config.AIEndpoint,
			APIKey:   config.AIAPIKey,
		}, nil),
		providers.NewCirculationSearcher(visionSource),
		providers.NewGeolocator(visionSource),
	}

	orch := orchestrator.New(store, extractor, adapters, runner, db)
	dates := dateinfer.New(config.DateInferEnabled)
	ingestor := ingest.New(store, previews, runner, dates, config.UploadDir)

	// Metrics
	var collector *metrics.Collector
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		collector = metrics.NewCollector(&statsProvider{store: store, db: db}, 15*time.Second)
		collector.Start()

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Initialize handlers
	h := handlers.New(store, ingestor, orch, db)
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware
	meteredHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	// Apply compression middleware
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(meteredHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, orch, runner, collector)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// statsProvider adapts the registry and history database to the metrics
// collector.
type statsProvider struct {
	store *registry.Store
	db    *database.Database
}

func (s *statsProvider) GetStats() metrics.Stats {
	byState := s.store.CountByState()
	stats := metrics.Stats{
		TotalRecords: s.store.Len(),
		RecordsByState: map[string]int{
			"idle":     byState[asset.StateIdle],
			"loading":  byState[asset.StateLoading],
			"complete": byState[asset.StateComplete],
		},
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if count, err := s.db.CountAnalyses(ctx); err == nil {
			stats.HistoryAnalyses = count
		}
	}
	return stats
}

func handleShutdown(srv, metricsSrv *http.Server, orch *orchestrator.Orchestrator, runner *progress.Runner, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping progress counters")
	runner.StopAll()
	startup.LogShutdownStepComplete("Progress counters stopped")

	startup.LogShutdownStep("Draining analysis runs")
	orch.Stop()
	startup.LogShutdownStepComplete("Analysis runs drained")

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
