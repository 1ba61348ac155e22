// Package main provides the entry point for the Media Forensics service.
//
// Media Forensics is a self-hosted web service for uploading images and
// videos and running provenance analysis over them: AI-generation scoring,
// reverse-image circulation search, landmark geolocation, and embedded
// metadata inspection. Video uploads are sampled into still frames that flow
// through the same analysis pipeline as images.
//
// # Application Lifecycle
//
// The application follows a structured initialization sequence:
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: Reads environment variables and validates directories
//  3. Image Pipeline: Initializes libvips for decode-time image shrinking
//  4. Database Initialization: Opens the SQLite analysis-history database
//  5. Component Initialization:
//     - Memory Monitor: Pauses frame extraction under memory pressure
//     - Frame Extractor: FFmpeg-based still sampling from videos
//     - Analysis Providers: AI detection, circulation search, geolocation
//     - Metrics Collector: Gathers Prometheus metrics
//  6. HTTP Server Setup: Configures routes, middleware, and starts server
//  7. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # Background Work
//
// Analysis runs are asynchronous: triggering analysis on an asset fans out
// one goroutine per provider plus the built-in metadata extractor, and the
// record completes when every requested provider has settled. Upload progress
// counters and the metrics collector also run in the background.
//
// # HTTP Servers
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - Asset upload, link submission, and deletion
//     - Analysis trigger, retry, and record retrieval
//     - Preview and frame-preview serving with caching
//     - Analysis history
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
// Configuration is primarily through environment variables:
//
//   - CACHE_DIR: Directory for retained uploads, previews, and frames
//   - DATABASE_DIR: Directory for the SQLite history database
//   - PORT: Main HTTP server port (default: 8080)
//   - METRICS_PORT: Metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable metrics server (default: true)
//   - FRAME_COUNT: Stills sampled per video (default: 2)
//   - AI_DETECTION_ENABLED / AI_DETECTION_ENDPOINT / AI_DETECTION_API_KEY
//   - VISION_ENABLED / VISION_CREDENTIALS_FILE: Google Cloud Vision access
//   - DATE_INFER_ENABLED: Published-date inference for link submissions
//   - ANALYSIS_WORKERS: Override worker count for frame extraction
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//   - GOMEMLIMIT: Memory limit (auto-detected from cgroups if not set)
//
// # Graceful Shutdown
//
// The application handles SIGINT and SIGTERM signals gracefully:
//
//  1. Stop upload progress counters
//  2. Drain in-flight analysis runs
//  3. Stop metrics collector and metrics server (if running)
//  4. Shutdown main HTTP server (30s timeout)
//  5. Close the history database
//
// # Build Requirements
//
// The application requires CGO for SQLite and libvips, and FFmpeg on the
// PATH for video frame extraction.
package main
