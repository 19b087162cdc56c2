// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] first loads ENV_FILE (default .env) with godotenv when it
// exists, without overriding variables already set, then reads:
//
//   - PORT, METRICS_PORT, METRICS_ENABLED: listeners (8080, 9090, true)
//   - WORK_DIR: intermediate files (/data/work)
//   - OUTPUT_DIR: published outputs, served under /outputs (/data/outputs)
//   - DATA_DIR: SQLite credential database (/data/db)
//   - CREDENTIALS_BACKEND: file or sqlite (file)
//   - CREDENTIALS_DIR: secret files for the file backend (/data/credentials)
//   - JOB_WORKERS: job pool size (auto)
//   - RETRY_MAX_ATTEMPTS, RETRY_BASE_DELAY, RETRY_MAX_DELAY: download retry (3, 1s, 30s)
//   - ATTEMPT_TIMEOUT, PROCESS_TIMEOUT: per attempt and per subprocess bounds (5m)
//   - DOWNLOAD_STRATEGIES: strategy order (direct,headless,scrape,credential,proxy)
//   - PROXY_URLS: proxies for the proxy strategy
//   - FFMPEG_PATH, FFPROBE_PATH, YTDLP_PATH, CHROME_PATH: external binaries
//   - CANVAS_WIDTH, CANVAS_HEIGHT, OUTPUT_FPS, FIT_MODE: rendering (1080, 1920, 30, cover)
//   - MAX_CLIP_SECONDS: longest accepted window (300)
//   - PUBLIC_BASE_URL: prefix for output URLs
//   - ORPHAN_MAX_AGE, SWEEP_INTERVAL: work directory janitor (6h, 30m)
//   - CREDENTIALS_RELOAD_INTERVAL: credential store re-read period (5m, 0 disables)
//   - LOG_LEVEL, LOG_FORMAT, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: logging
//
// Directories are resolved to absolute paths, created when missing, and
// checked for write access.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [LogCredentialsInit], [LogPipelineInit], [CheckTools], [LogHTTPRoutes],
// [LogServerStarted] and the shutdown helpers print the startup report in a
// consistent format.
package startup
