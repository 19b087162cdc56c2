package compose

import (
	"fmt"
	"strings"

	"clip-stacker/internal/transcoder"
)

// FitMode controls how a source is fitted into its cell.
type FitMode string

const (
	// FitCover scales to fill the cell and crops the overflow.
	FitCover FitMode = "cover"
	// FitContain scales to fit inside the cell and pads the rest.
	FitContain FitMode = "contain"
)

// ParseFitMode parses a fit mode name. The empty string means cover.
func ParseFitMode(s string) (FitMode, error) {
	switch FitMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FitCover:
		return FitCover, nil
	case FitContain:
		return FitContain, nil
	default:
		return "", fmt.Errorf("unknown fit mode %q (want cover or contain)", s)
	}
}

// Mode selects what a job produces.
type Mode string

const (
	// ModeStacked renders one vertically stacked video plus a thumbnail.
	ModeStacked Mode = "stacked"
	// ModeSeparate renders each source and the audio track on its own.
	ModeSeparate Mode = "separate"
)

// ParseMode parses a mode name. The empty string means stacked.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStacked:
		return ModeStacked, nil
	case ModeSeparate:
		return ModeSeparate, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want stacked or separate)", s)
	}
}

// Input roles
const (
	RoleMain       = "main"
	RoleBackground = "background"
)

// Output roles
const (
	OutputCombined           = "combined"
	OutputThumbnail          = "thumbnail"
	OutputMainRendered       = "main_rendered"
	OutputBackgroundRendered = "background_rendered"
	OutputAudio              = "audio"
)

// OutputRole names an output and its file extension.
type OutputRole struct {
	Role string
	Ext  string
}

// OutputRoles lists the outputs a mode produces, in render order.
func OutputRoles(mode Mode) []OutputRole {
	if mode == ModeSeparate {
		return []OutputRole{
			{Role: OutputMainRendered, Ext: ".mp4"},
			{Role: OutputBackgroundRendered, Ext: ".mp4"},
			{Role: OutputAudio, Ext: ".m4a"},
		}
	}
	return []OutputRole{
		{Role: OutputCombined, Ext: ".mp4"},
		{Role: OutputThumbnail, Ext: ".jpg"},
	}
}

// Window is a time range in seconds, [Start, End).
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End-Start.
func (w Window) Duration() float64 { return w.End - w.Start }

// Dimensions is a frame size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

// Options are the rendering parameters shared by every job.
type Options struct {
	Canvas       Dimensions
	FPS          int
	Fit          FitMode
	CRF          int
	Preset       string
	AudioBitrate string
	ThumbWidth   int
}

// DefaultOptions returns a 1080x1920 canvas at 30 fps with cover fitting.
func DefaultOptions() Options {
	return Options{
		Canvas:       Dimensions{Width: 1080, Height: 1920},
		FPS:          30,
		Fit:          FitCover,
		CRF:          23,
		Preset:       "veryfast",
		AudioBitrate: "128k",
		ThumbWidth:   360,
	}
}

// Validate checks that the options describe a renderable canvas.
func (o Options) Validate() error {
	if o.Canvas.Width <= 0 || o.Canvas.Height <= 0 {
		return fmt.Errorf("canvas %s must be positive", o.Canvas)
	}
	if o.Canvas.Width%2 != 0 || o.Canvas.Height%4 != 0 {
		return fmt.Errorf("canvas %s: width must be even and height divisible by 4", o.Canvas)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", o.FPS)
	}
	if _, err := ParseFitMode(string(o.Fit)); err != nil {
		return err
	}
	return nil
}

// Cell returns the size of one half of the stacked canvas.
func (o Options) Cell() Dimensions {
	return Dimensions{Width: o.Canvas.Width, Height: o.Canvas.Height / 2}
}

// Error is returned when rendering an output fails.
type Error struct {
	Output string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("composition failed for %s: %v", e.Output, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// MediaInfo is what probing reports about an input.
type MediaInfo = transcoder.VideoInfo
