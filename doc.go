// Package main provides the entry point for the clip-stacker service.
//
// clip-stacker accepts requests to combine a clip of a main video with a
// background video into a single vertical video. Requests are queued and
// processed asynchronously: each job downloads both sources through an
// ordered list of download strategies, composes them with ffmpeg and
// publishes the results under OUTPUT_DIR, served at /outputs/.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
//  2. Configuration loading: optional .env file, environment variables,
//     directory checks
//  3. Credential pool: file or SQLite backend, loaded once at startup
//  4. External tools: ffmpeg and ffprobe are required, yt-dlp and a
//     headless browser enable the strategies that need them
//  5. Job manager: worker pool, orphan sweeper, metrics collector
//  6. HTTP server setup: routes, middleware, separate metrics server
//  7. Graceful shutdown on SIGINT/SIGTERM
//
// # HTTP API
//
//	POST /api/jobs                          submit a job
//	GET  /api/jobs                          list recent jobs
//	GET  /api/jobs/{id}                     job status
//	GET  /api/jobs/{id}/ws                  status updates over a websocket
//	GET  /api/jobs/{id}/download/{role}     download one output
//	GET  /outputs/{id}/{file}               published outputs
//	GET  /health, /livez, /readyz, /version
//
// # Graceful Shutdown
//
//  1. Stop accepting HTTP requests
//  2. Fail queued jobs and wait for running jobs (30s deadline, after which
//     running jobs are cancelled and their temporary files removed)
//  3. Kill any remaining external processes
//  4. Stop the metrics collector, memory monitor and sweeper
//  5. Shut down the metrics server
//
// # Related Packages
//
//   - [clip-stacker/internal/jobs]: job table, queue and pipeline
//   - [clip-stacker/internal/download]: download strategies and resolver
//   - [clip-stacker/internal/compose]: composition plans and ffmpeg execution
//   - [clip-stacker/internal/credentials]: credential pool and stores
//   - [clip-stacker/internal/handlers]: HTTP handlers
//   - [clip-stacker/internal/startup]: configuration and startup logging
package main
