package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/kkdai/youtube/v2"

	"clip-stacker/internal/transcoder"
)

// maxHeight caps the resolution picked from video sites. The composition
// canvas never needs more.
const maxHeight = 1080

// Direct fetches media without browser, credential or proxy help: video
// ids through the YouTube client, direct media URLs by plain GET.
type Direct struct {
	YouTube *youtube.Client
	Fetcher *Fetcher
	// Runner and FFmpeg mux separate video and audio streams.
	Runner transcoder.Runner
	FFmpeg string
}

// Name implements Strategy.
func (d *Direct) Name() string { return "direct" }

// Prerequisite implements Strategy.
func (d *Direct) Prerequisite(src Source) string {
	if src.VideoID == "" && !src.IsMediaURL() {
		return "not a video id or direct media URL"
	}
	return ""
}

// Fetch implements Strategy.
func (d *Direct) Fetch(ctx context.Context, src Source, dest string, _ Lease) error {
	if src.VideoID == "" {
		_, err := d.Fetcher.ToFile(ctx, src.URL.String(), dest, nil)
		return err
	}

	video, err := d.YouTube.GetVideoContext(ctx, src.VideoID)
	if err != nil {
		return fmt.Errorf("video info: %w", err)
	}

	if f := pickProgressive(video.Formats); f != nil {
		return d.stream(ctx, video, f, dest)
	}

	vf, af := pickVideo(video.Formats), pickAudio(video.Formats)
	if vf == nil || af == nil {
		return fmt.Errorf("%w: no usable formats for %s", ErrNoStream, src.VideoID)
	}

	stem := strings.TrimSuffix(dest, ".mp4")
	videoPart := stem + ".f-video.mp4"
	audioPart := stem + ".f-audio.m4a"
	defer os.Remove(videoPart)
	defer os.Remove(audioPart)

	if err := d.stream(ctx, video, vf, videoPart); err != nil {
		return err
	}
	if err := d.stream(ctx, video, af, audioPart); err != nil {
		return err
	}

	ffmpeg := d.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	_, err = d.Runner.Run(ctx, ffmpeg, "-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPart, "-i", audioPart, "-c", "copy", "-movflags", "+faststart", dest)
	if err != nil {
		return fmt.Errorf("mux: %w", err)
	}
	return nil
}

func (d *Direct) stream(ctx context.Context, video *youtube.Video, format *youtube.Format, path string) error {
	stream, _, err := d.YouTube.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("open stream itag %d: %w", format.ItagNo, err)
	}
	defer stream.Close()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, stream); err != nil {
		file.Close()
		return fmt.Errorf("stream itag %d: %w", format.ItagNo, err)
	}
	return file.Close()
}

func isMP4(f youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, "video/mp4")
}

// pickProgressive returns the tallest mp4 format carrying both video and
// audio, within maxHeight.
func pickProgressive(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := formats[i]
		if !isMP4(f) || f.AudioChannels == 0 || f.Height > maxHeight {
			continue
		}
		if best == nil || f.Height > best.Height {
			best = &formats[i]
		}
	}
	return best
}

// pickVideo returns the tallest video-only format within maxHeight,
// preferring mp4.
func pickVideo(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := formats[i]
		if !strings.HasPrefix(f.MimeType, "video/") || f.Height > maxHeight {
			continue
		}
		switch {
		case best == nil:
			best = &formats[i]
		case isMP4(f) && !isMP4(*best):
			best = &formats[i]
		case isMP4(f) == isMP4(*best) && f.Height > best.Height:
			best = &formats[i]
		}
	}
	return best
}

// pickAudio returns the highest bitrate audio format, preferring mp4.
func pickAudio(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		mp4 := strings.HasPrefix(f.MimeType, "audio/mp4")
		switch {
		case best == nil:
			best = &formats[i]
		case mp4 && !strings.HasPrefix(best.MimeType, "audio/mp4"):
			best = &formats[i]
		case mp4 == strings.HasPrefix(best.MimeType, "audio/mp4") && f.Bitrate > best.Bitrate:
			best = &formats[i]
		}
	}
	return best
}

// NewYouTubeClient returns a client that shares the fetcher's transport.
func NewYouTubeClient(httpClient *http.Client) *youtube.Client {
	return &youtube.Client{HTTPClient: httpClient}
}
