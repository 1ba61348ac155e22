package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-forensics/internal/logging"

	"github.com/gorilla/mux"
)

// Injected at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo is one registered route, flattened per method.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration.
type Config struct {
	CacheDir        string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	FrameCount      int
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	// AI detection provider
	AIEnabled  bool
	AIEndpoint string
	AIAPIKey   string

	// Cloud Vision based providers (circulation search, geolocation)
	VisionEnabled     bool
	VisionCredentials string

	// Publication date inference for linked sources
	DateInferEnabled bool

	// Derived paths
	DatabasePath string
	UploadDir    string
	PreviewDir   string
	FrameDir     string
}

const sep = "------------------------------------------------------------"

// section prints a titled separator block in the startup log.
func section(title string) {
	logging.Info("")
	logging.Info(sep)
	logging.Info(title)
	logging.Info(sep)
}

// LoadConfig reads configuration from the environment, resolves and
// verifies the cache and database directories, and logs the effective
// settings. Returning an error here aborts startup: the service cannot
// run without writable storage for uploads, previews and frames.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()
	section("CONFIGURATION")

	cfg := &Config{
		CacheDir:        getEnv("CACHE_DIR", "/cache"),
		DatabaseDir:     getEnv("DATABASE_DIR", "/database"),
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		FrameCount:      getEnvInt("FRAME_COUNT", 2),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),

		AIEnabled:         getEnvBool("AI_DETECTION_ENABLED", true),
		AIEndpoint:        getEnv("AI_DETECTION_ENDPOINT", ""),
		AIAPIKey:          getEnv("AI_DETECTION_API_KEY", ""),
		VisionEnabled:     getEnvBool("VISION_ENABLED", true),
		VisionCredentials: getEnv("VISION_CREDENTIALS_FILE", ""),
		DateInferEnabled:  getEnvBool("DATE_INFER_ENABLED", true),
	}

	logging.Info("  CACHE_DIR:              %s", cfg.CacheDir)
	logging.Info("  DATABASE_DIR:           %s", cfg.DatabaseDir)
	logging.Info("  PORT:                   %s", cfg.Port)
	logging.Info("  METRICS_PORT:           %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:        %v", cfg.MetricsEnabled)
	logging.Info("  FRAME_COUNT:            %d", cfg.FrameCount)
	logging.Info("  AI_DETECTION_ENABLED:   %v", cfg.AIEnabled)
	logging.Info("  VISION_ENABLED:         %v", cfg.VisionEnabled)
	logging.Info("  DATE_INFER_ENABLED:     %v", cfg.DateInferEnabled)
	logging.Info("  LOG_STATIC_FILES:       %v", cfg.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:      %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())

	if cfg.FrameCount < 1 {
		logging.Warn("  Invalid FRAME_COUNT, using default: 2")
		cfg.FrameCount = 2
	}

	section("DIRECTORY SETUP")

	var err error
	if cfg.CacheDir, err = filepath.Abs(cfg.CacheDir); err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	if cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Cache directory:    %s", cfg.CacheDir)
	logging.Info("  Database directory: %s", cfg.DatabaseDir)

	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "forensics.db")
	cfg.UploadDir = filepath.Join(cfg.CacheDir, "uploads")
	cfg.PreviewDir = filepath.Join(cfg.CacheDir, "previews")
	cfg.FrameDir = filepath.Join(cfg.CacheDir, "frames")

	// Uploads, previews and extracted frames all live on disk under the
	// cache root, so every subdirectory must exist and accept writes.
	cacheDirs := map[string]string{
		"uploads":  cfg.UploadDir,
		"previews": cfg.PreviewDir,
		"frames":   cfg.FrameDir,
	}
	for name, path := range cacheDirs {
		if err := ensureWritableDir(path, name); err != nil {
			return nil, err
		}
	}
	logging.Info("  [OK] Cache directories are writable")

	// The history database persists every record; it is not optional.
	if err := ensureWritableDir(cfg.DatabaseDir, "database"); err != nil {
		return nil, err
	}
	logging.Info("  [OK] Database directory is writable")

	logging.Info("")
	logging.Info("  Provider availability:")
	logging.Info("    History database:  ENABLED (required)")
	logging.Info("    AI detection:      %s", providerString(cfg.AIEnabled, cfg.AIEndpoint != "" && cfg.AIAPIKey != ""))
	logging.Info("    Circulation:       %s", providerString(cfg.VisionEnabled, cfg.VisionCredentials != ""))
	logging.Info("    Geolocation:       %s", providerString(cfg.VisionEnabled, cfg.VisionCredentials != ""))
	logging.Info("    Date inference:    %s", enabledString(cfg.DateInferEnabled))
	logging.Info("    Metrics:           %s", enabledString(cfg.MetricsEnabled))

	return cfg, nil
}

func providerString(enabled, configured bool) string {
	switch {
	case !enabled:
		return "DISABLED"
	case !configured:
		return "DISABLED (not configured)"
	default:
		return "ENABLED"
	}
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs history database initialization.
func LogDatabaseInit(duration time.Duration) {
	section("DATABASE INITIALIZATION")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogExtractorInit logs frame extractor initialization and verifies that
// FFmpeg is on the PATH. A missing FFmpeg is a warning, not an error:
// image-only deployments never invoke it.
func LogExtractorInit(frameCount int) {
	section("FRAME EXTRACTOR INITIALIZATION")
	logging.Info("  Frames per video: %d", frameCount)

	if err := checkFFmpeg(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video analysis will not work correctly")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
}

// GetRoutes walks a mux.Router and returns one RouteInfo per
// method/path combination. Routes without explicit methods (the static
// file server) are reported with method "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the HTTP server setup. At debug level it dumps the
// full route table grouped by path prefix.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		dumpRoutes(router)
	}

	logging.Info("  HTTP logging enabled")
	logToggle("Static file logging", logStaticFiles, "LOG_STATIC_FILES")
	logToggle("Health check logging", logHealthChecks, "LOG_HEALTH_CHECKS")
}

func logToggle(label string, on bool, envVar string) {
	if on {
		logging.Info("    %s: ON", label)
	} else {
		logging.Info("    %s: OFF (set %s=true to enable)", label, envVar)
	}
}

func dumpRoutes(router *mux.Router) {
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	logging.Debug("  Registered routes (%d total):", len(routes))
	logging.Debug("")

	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		key := routeGroup(route.Path)
		groups[key] = append(groups[key], route)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		label := key
		if label == "" {
			label = "root"
		}
		logging.Debug("  [%s]", label)
		for _, route := range groups[key] {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
		logging.Debug("")
	}
}

// routeGroup buckets a route path by its first segment; API routes get
// a second level so record and frame endpoints group separately.
func routeGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	return parts[0]
}

// ServerConfig holds configuration for the server startup log.
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information.
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(sep)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start.
func LogShutdownInitiated(signal string) {
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step.
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step.
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion.
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits.
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___       ___     ______                       _
   /  |/  /__ ___/ (_)__ _/ __/ /_ ___________ ___  ___(_)______
  / /|_/ / -_) _  / / _ '/ _// _ \/ __/ -_) _ \(_-< / __/ (_-<_-<
 /_/  /_/\__/\_,_/_/\_,_/_/  \___/_/  \__/_//_/___(_)__/_/___/__/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info(sep)
	logging.Info("SYSTEM INFORMATION")
	logging.Info(sep)
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
}

// ensureWritableDir creates the directory if needed and confirms write
// access by touching a marker file. On NFS-backed volumes a mount can be
// present but read-only; catching that at startup beats a confusing
// upload failure later.
func ensureWritableDir(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("%s directory error: failed to create directory: %w", name, err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
	case err != nil:
		return fmt.Errorf("%s directory error: %w", name, err)
	case !info.IsDir():
		return fmt.Errorf("%s directory error: path exists but is not a directory", name)
	}

	marker := filepath.Join(path, ".write-test")
	if err := os.WriteFile(marker, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("%s directory is not writable: %w", name, err)
	}
	if err := os.Remove(marker); err != nil {
		// Write access was confirmed; a leftover marker file is harmless.
		logging.Warn("failed to remove write test file %s: %v", marker, err)
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	if first, _, _ := strings.Cut(string(out), "\n"); first != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(first))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, v, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, v, defaultValue)
		return defaultValue
	}
	return parsed
}
