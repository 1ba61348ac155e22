// Package startup loads service configuration from the environment and
// owns the human-readable startup and shutdown log.
//
// [LoadConfig] reads every setting, resolves the cache and database
// directories to absolute paths, and verifies both are writable before
// the server accepts its first upload. Supported variables:
//
//	CACHE_DIR                uploads, previews and frames root (default /cache)
//	DATABASE_DIR             history database directory (default /database)
//	PORT                     HTTP server port (default 8080)
//	METRICS_PORT             Prometheus metrics port (default 9090)
//	METRICS_ENABLED          serve /metrics (default true)
//	FRAME_COUNT              still frames extracted per video (default 2)
//	AI_DETECTION_ENABLED     AI detection provider toggle (default true)
//	AI_DETECTION_ENDPOINT    AI detection scoring endpoint URL
//	AI_DETECTION_API_KEY     API key for the AI detection endpoint
//	VISION_ENABLED           Cloud Vision providers toggle (default true)
//	VISION_CREDENTIALS_FILE  Cloud Vision service account credentials path
//	DATE_INFER_ENABLED       publication date inference for links (default true)
//	LOG_LEVEL                debug, info, warn or error (default info)
//	LOG_STATIC_FILES         log static file requests (default false)
//	LOG_HEALTH_CHECKS        log health check requests (default true)
//
// GOMEMLIMIT, MEMORY_LIMIT and MEMORY_RATIO are handled by the memory
// package; ANALYSIS_WORKERS by the workers package.
//
// Version, Commit and BuildTime are injected with -ldflags and surfaced
// through [GetBuildInfo] for the /api/version endpoint.
//
// The Log* functions (LogDatabaseInit, LogExtractorInit, LogHTTPRoutes,
// LogServerStarted and the LogShutdown* family) exist so main stays a
// sequence of initialization steps rather than a wall of format strings.
package startup
