// Package memory keeps the service inside its container memory limit.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO.
// The ratio defaults low because most of the memory a job uses belongs to
// ffmpeg and the download tools, which run outside the Go heap.
//
// [Monitor] samples heap usage and, once it crosses PauseAt, holds idle job
// workers back from picking up new work until usage drops below ResumeAt.
// Jobs already running are never interrupted.
package memory
