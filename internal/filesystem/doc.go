/*
Package filesystem provides file operations used around the media pipeline.

# Stale Handles

Work and output directories are often network mounts. StatWithRetry wraps
os.Stat and retries ESTALE (stale file handle) errors with exponential backoff
through the retry package. Every other error is returned immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Defaults:
  - MaxRetries: 3
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

# Media Files

VerifyNonEmpty is the check applied to every downloaded or rendered file. A
zero-byte file is reported with ErrEmpty so callers can treat it as a failed
attempt rather than a result.

Move publishes a finished file. It falls back to a copy when the work and
output directories live on different devices.
*/
package filesystem
