package transcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Transcoder invokes ffmpeg and ffprobe through a Runner.
type Transcoder struct {
	runner  Runner
	ffmpeg  string
	ffprobe string
}

// VideoInfo contains information about a media file.
type VideoInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Codec    string  `json:"codec"`
	HasAudio bool    `json:"hasAudio"`
}

// New creates a Transcoder. Empty paths fall back to the binaries on PATH.
func New(runner Runner, ffmpegPath, ffprobePath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Transcoder{runner: runner, ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// FFmpegPath returns the ffmpeg binary in use.
func (t *Transcoder) FFmpegPath() string { return t.ffmpeg }

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetVideoInfo retrieves codec, dimension and audio information about a file.
func (t *Transcoder) GetVideoInfo(ctx context.Context, filePath string) (*VideoInfo, error) {
	res, err := t.runner.Run(ctx, t.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe error: %w", err)
	}
	return parseProbe(res.Stdout)
}

func parseProbe(data []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.Codec == "" {
				info.Codec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
				if info.Duration == 0 {
					info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
				}
			}
		case "audio":
			info.HasAudio = true
		}
	}

	return info, nil
}

// Run invokes ffmpeg with args.
func (t *Transcoder) Run(ctx context.Context, args ...string) error {
	_, err := t.runner.Run(ctx, t.ffmpeg, args...)
	return err
}
