// Package transcoder runs the external programs the pipeline depends on.
//
// It provides:
//   - Exec, a process runner with per-process timeouts that tracks running
//     children so they can be killed on shutdown
//   - Transcoder, a thin ffmpeg/ffprobe wrapper used for probing inputs and
//     rendering outputs
//
// ffmpeg, ffprobe and yt-dlp must be installed. Their paths are configurable.
package transcoder
