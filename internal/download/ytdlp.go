package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"clip-stacker/internal/transcoder"
)

// formatSelector prefers mp4 video with m4a audio and falls back to
// whatever single file is available.
const formatSelector = "bv*[height<=1080][ext=mp4]+ba[ext=m4a]/b[height<=1080][ext=mp4]/bv*[height<=1080]+ba/b"

// YTDLP invokes the yt-dlp command line tool.
type YTDLP struct {
	Runner    transcoder.Runner
	Path      string
	Available bool
	// FFmpeg is passed as --ffmpeg-location when set.
	FFmpeg string
}

// NewYTDLP returns a client for the binary at path ("yt-dlp" when empty).
// Available reports whether the binary was found.
func NewYTDLP(runner transcoder.Runner, path, ffmpeg string) *YTDLP {
	if path == "" {
		path = "yt-dlp"
	}
	_, err := exec.LookPath(path)
	return &YTDLP{Runner: runner, Path: path, Available: err == nil, FFmpeg: ffmpeg}
}

// Options for a single yt-dlp download.
type Options struct {
	CookiesPath string
	ProxyURL    string
}

// Args builds the argument list for downloading src into dest.
func (y *YTDLP) Args(src Source, dest string, opts Options) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--newline",
		"--force-overwrites",
		"--no-part",
		"--socket-timeout", "30",
		"-f", formatSelector,
		"--merge-output-format", "mp4",
		"-o", strings.ReplaceAll(dest, "%", "%%"),
	}
	if y.FFmpeg != "" && y.FFmpeg != "ffmpeg" {
		args = append(args, "--ffmpeg-location", y.FFmpeg)
	}
	if opts.CookiesPath != "" {
		args = append(args, "--cookies", opts.CookiesPath)
	}
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		args = append(args, "--proxy", p)
	}
	return append(args, "--", src.PageURL())
}

// Download runs yt-dlp for src.
func (y *YTDLP) Download(ctx context.Context, src Source, dest string, opts Options) error {
	_, err := y.Runner.Run(ctx, y.Path, y.Args(src, dest, opts)...)
	if err != nil {
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}

// writeSecret materializes a credential next to dest with owner-only
// permissions. The caller removes it.
func writeSecret(dest, id string, payload []byte) (string, error) {
	stem := strings.TrimSuffix(dest, ".mp4")
	if len(id) > 8 {
		id = id[:8]
	}
	p := fmt.Sprintf("%s.cred-%s.txt", stem, id)
	if err := os.WriteFile(p, payload, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage credential: %w", err)
	}
	return p, nil
}
