package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"clip-stacker/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
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

// Credential backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool

	WorkDir   string
	OutputDir string
	DataDir   string

	CredentialsBackend string
	CredentialsDir     string
	CredentialsReload  time.Duration

	JobWorkers     int
	MaxClipSeconds float64
	PublicBaseURL  string

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	AttemptTimeout   time.Duration
	ProcessTimeout   time.Duration

	DownloadStrategies []string
	ProxyURLs          []string

	FFmpegPath  string
	FFprobePath string
	YTDLPPath   string
	ChromePath  string

	CanvasWidth  int
	CanvasHeight int
	OutputFPS    int
	FitMode      string

	OrphanMaxAge  time.Duration
	SweepInterval time.Duration

	// Derived paths
	DatabasePath string
}

// LoadConfig loads an optional .env file, then reads and validates
// configuration from environment variables.
func LoadConfig() (*Config, error) {
	envFile := loadDotEnv()

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if envFile != "" {
		logging.Info("  Loaded environment from %s", envFile)
	}

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),

		WorkDir:   getEnv("WORK_DIR", "/data/work"),
		OutputDir: getEnv("OUTPUT_DIR", "/data/outputs"),
		DataDir:   getEnv("DATA_DIR", "/data/db"),

		CredentialsBackend: strings.ToLower(getEnv("CREDENTIALS_BACKEND", BackendFile)),
		CredentialsDir:     getEnv("CREDENTIALS_DIR", "/data/credentials"),
		CredentialsReload:  getEnvDuration("CREDENTIALS_RELOAD_INTERVAL", 5*time.Minute),

		JobWorkers:     getEnvInt("JOB_WORKERS", 0),
		MaxClipSeconds: getEnvFloat("MAX_CLIP_SECONDS", 300),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
		AttemptTimeout:   getEnvDuration("ATTEMPT_TIMEOUT", 5*time.Minute),
		ProcessTimeout:   getEnvDuration("PROCESS_TIMEOUT", 5*time.Minute),

		DownloadStrategies: getEnvList("DOWNLOAD_STRATEGIES", []string{"direct", "headless", "scrape", "credential", "proxy"}),
		ProxyURLs:          getEnvList("PROXY_URLS", nil),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
		YTDLPPath:   getEnv("YTDLP_PATH", "yt-dlp"),
		ChromePath:  getEnv("CHROME_PATH", ""),

		CanvasWidth:  getEnvInt("CANVAS_WIDTH", 1080),
		CanvasHeight: getEnvInt("CANVAS_HEIGHT", 1920),
		OutputFPS:    getEnvInt("OUTPUT_FPS", 30),
		FitMode:      strings.ToLower(getEnv("FIT_MODE", "cover")),

		OrphanMaxAge:  getEnvDuration("ORPHAN_MAX_AGE", 6*time.Hour),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 30*time.Minute),
	}

	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  WORK_DIR:            %s", config.WorkDir)
	logging.Info("  OUTPUT_DIR:          %s", config.OutputDir)
	logging.Info("  DATA_DIR:            %s", config.DataDir)
	logging.Info("  CREDENTIALS_BACKEND: %s", config.CredentialsBackend)
	logging.Info("  CREDENTIALS_DIR:     %s", config.CredentialsDir)
	logging.Info("  CREDENTIALS_RELOAD:  %v", config.CredentialsReload)
	logging.Info("  JOB_WORKERS:         %s", workersString(config.JobWorkers))
	logging.Info("  MAX_CLIP_SECONDS:    %g", config.MaxClipSeconds)
	logging.Info("  PUBLIC_BASE_URL:     %s", valueOr(config.PublicBaseURL, "(relative)"))
	logging.Info("  RETRY:               %d attempts, %v base, %v max", config.RetryMaxAttempts, config.RetryBaseDelay, config.RetryMaxDelay)
	logging.Info("  ATTEMPT_TIMEOUT:     %v", config.AttemptTimeout)
	logging.Info("  PROCESS_TIMEOUT:     %v", config.ProcessTimeout)
	logging.Info("  DOWNLOAD_STRATEGIES: %s", strings.Join(config.DownloadStrategies, ","))
	logging.Info("  PROXY_URLS:          %d configured", len(config.ProxyURLs))
	logging.Info("  CANVAS:              %dx%d @ %d fps (%s)", config.CanvasWidth, config.CanvasHeight, config.OutputFPS, config.FitMode)
	logging.Info("  ORPHAN_MAX_AGE:      %v", config.OrphanMaxAge)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if err := config.validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dirs := []directory{
		{&config.WorkDir, "work"},
		{&config.OutputDir, "output"},
		{&config.DataDir, "data"},
	}
	if config.CredentialsBackend == BackendFile {
		dirs = append(dirs, directory{&config.CredentialsDir, "credentials"})
	}

	for _, d := range dirs {
		abs, err := filepath.Abs(*d.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", d.name, err)
		}
		*d.path = abs
		logging.Info("  %s directory (absolute): %s", strings.ToUpper(d.name[:1])+d.name[1:], abs)

		if err := ensureDirectory(abs, d.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", d.name, err)
		}
		if d.name == "credentials" {
			continue
		}
		if err := testWriteAccess(abs); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
		logging.Info("  [OK] %s directory is writable", d.name)
	}

	config.DatabasePath = filepath.Join(config.DataDir, "credentials.db")

	return config, nil
}

type directory struct {
	path *string
	name string
}

func (c *Config) validate() error {
	switch c.CredentialsBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("CREDENTIALS_BACKEND must be %q or %q, got %q", BackendFile, BackendSQLite, c.CredentialsBackend)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 || c.OutputFPS <= 0 {
		return fmt.Errorf("canvas %dx%d @ %d fps is invalid", c.CanvasWidth, c.CanvasHeight, c.OutputFPS)
	}
	if len(c.DownloadStrategies) == 0 {
		return fmt.Errorf("DOWNLOAD_STRATEGIES must name at least one strategy")
	}
	return nil
}

// loadDotEnv loads ENV_FILE (default .env) when it exists. Variables
// already set in the environment win.
func loadDotEnv() string {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	if err := godotenv.Load(path); err != nil {
		logging.Warn("Failed to load %s: %v", path, err)
		return ""
	}
	return path
}

func workersString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
       _ _             _             _
   ___| (_)_ __    ___| |_ __ _  ___| | _____ _ __
  / __| | | '_ \  / __| __/ _' |/ __| |/ / _ \ '__|
 | (__| | | |_) | \__ \ || (_| | (__|   <  __/ |
  \___|_|_| .__/  |___/\__\__,_|\___|_|\_\___|_|
          |_|
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		logging.Warn("Invalid %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvList splits a comma or whitespace separated value. Empty entries
// are dropped.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}
