package compose

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Filter returns the ffmpeg filter chain for the transform.
func (t Transform) Filter() string {
	parts := []string{fmt.Sprintf("fps=%d", t.FPS)}
	tw, th := t.Target.Width, t.Target.Height

	switch {
	case t.Scaled.Width > 0 && t.Fit == FitContain:
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d", t.Scaled.Width, t.Scaled.Height),
			fmt.Sprintf("pad=%d:%d:%d:%d:color=black", tw, th, t.OffsetX, t.OffsetY))
	case t.Scaled.Width > 0:
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d", t.Scaled.Width, t.Scaled.Height),
			fmt.Sprintf("crop=%d:%d:%d:%d", tw, th, t.OffsetX, t.OffsetY))
	case t.Fit == FitContain:
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", tw, th),
			"scale=trunc(iw/2)*2:trunc(ih/2)*2",
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", tw, th))
	default:
		parts = append(parts,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", tw, th),
			fmt.Sprintf("crop=%d:%d", tw, th))
	}

	return strings.Join(append(parts, "setsar=1"), ",")
}

// Transform returns the transform for role.
func (p *Plan) Transform(role string) (Transform, bool) {
	for _, t := range p.Transforms {
		if t.Role == role {
			return t, true
		}
	}
	return Transform{}, false
}

// Args returns the ffmpeg arguments that render output role. The thumbnail
// is rendered from the combined output and has no ffmpeg invocation of its
// own here; see ThumbnailFrameArgs.
func (p *Plan) Args(role string) ([]string, error) {
	out, ok := p.Output(role)
	if !ok {
		return nil, fmt.Errorf("plan has no output %q", role)
	}

	switch role {
	case OutputCombined:
		return p.stackedArgs(out), nil
	case OutputMainRendered:
		return p.renderArgs(RoleMain, out), nil
	case OutputBackgroundRendered:
		return p.renderArgs(RoleBackground, out), nil
	case OutputAudio:
		return p.audioArgs(out), nil
	default:
		return nil, fmt.Errorf("output %q is not rendered by ffmpeg", role)
	}
}

func baseArgs() []string {
	return []string{"-y", "-hide_banner", "-loglevel", "error", "-nostdin"}
}

func (p *Plan) inputArgs(in Input) []string {
	var args []string
	if in.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	return append(args,
		"-ss", seconds(in.Window.Start),
		"-t", seconds(in.Window.Duration()),
		"-i", in.Path,
	)
}

func (p *Plan) videoCodecArgs() []string {
	o := p.Options
	return []string{
		"-c:v", "libx264",
		"-preset", o.Preset,
		"-crf", strconv.Itoa(o.CRF),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(o.FPS),
	}
}

func (p *Plan) audioCodecArgs() []string {
	return []string{"-c:a", "aac", "-b:a", p.Options.AudioBitrate}
}

func (p *Plan) trailer(path string) []string {
	return []string{"-t", seconds(p.Duration), "-movflags", "+faststart", path}
}

func (p *Plan) stackedArgs(out OutputSpec) []string {
	main, _ := p.Input(RoleMain)
	bg, _ := p.Input(RoleBackground)
	top, _ := p.Transform(RoleMain)
	bottom, _ := p.Transform(RoleBackground)

	args := baseArgs()
	args = append(args, p.inputArgs(main)...)
	args = append(args, p.inputArgs(bg)...)

	graph := fmt.Sprintf("[0:v]%s[top];[1:v]%s[bottom];[top][bottom]vstack=inputs=2[v]", top.Filter(), bottom.Filter())
	args = append(args, "-filter_complex", graph, "-map", "[v]")

	switch p.Combine.AudioRole {
	case RoleMain:
		args = append(args, "-map", "0:a:0?")
	case RoleBackground:
		args = append(args, "-map", "1:a:0?")
	}

	args = append(args, p.videoCodecArgs()...)
	if p.Combine.AudioRole != "" {
		args = append(args, p.audioCodecArgs()...)
	} else {
		args = append(args, "-an")
	}
	return append(args, p.trailer(out.Path)...)
}

func (p *Plan) renderArgs(role string, out OutputSpec) []string {
	in, _ := p.Input(role)
	t, _ := p.Transform(role)

	args := baseArgs()
	args = append(args, p.inputArgs(in)...)
	args = append(args, "-vf", t.Filter(), "-map", "0:v:0", "-an")
	args = append(args, p.videoCodecArgs()...)
	return append(args, p.trailer(out.Path)...)
}

func (p *Plan) audioArgs(out OutputSpec) []string {
	args := baseArgs()

	switch p.Combine.AudioRole {
	case RoleMain, RoleBackground:
		in, _ := p.Input(p.Combine.AudioRole)
		args = append(args, p.inputArgs(in)...)
		args = append(args, "-map", "0:a:0", "-vn")
	default:
		return p.silentAudioArgs(out)
	}

	args = append(args, p.audioCodecArgs()...)
	return append(args, "-t", seconds(p.Duration), "-movflags", "+faststart", out.Path)
}

func (p *Plan) silentAudioArgs(out OutputSpec) []string {
	args := baseArgs()
	args = append(args, "-f", "lavfi", "-t", seconds(p.Duration), "-i", "anullsrc=r=44100:cl=stereo", "-vn")
	args = append(args, p.audioCodecArgs()...)
	return append(args, "-t", seconds(p.Duration), "-movflags", "+faststart", out.Path)
}

// audioUnprobed reports whether the audio source was chosen without a probe
// result, so its audio track is assumed rather than known.
func (p *Plan) audioUnprobed() bool {
	if p.Combine.AudioRole == "" {
		return false
	}
	in, ok := p.Input(p.Combine.AudioRole)
	return ok && in.Info == nil
}

// ThumbnailFrameArgs grabs one frame of the combined output into framePath.
func (p *Plan) ThumbnailFrameArgs(combinedPath, framePath string) []string {
	at := math.Min(1, p.Duration/2)
	args := baseArgs()
	return append(args,
		"-ss", seconds(at),
		"-i", combinedPath,
		"-frames:v", "1",
		framePath,
	)
}

// seconds formats a time offset for ffmpeg with millisecond precision.
func seconds(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
