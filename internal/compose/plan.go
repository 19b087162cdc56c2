package compose

import (
	"errors"
	"fmt"
	"math"
)

// Input is one local source file fed to the renderer.
type Input struct {
	Role   string
	Path   string
	Window Window
	// Loop repeats the input so that a short file fills the window.
	Loop bool
	// Info is the probe result, nil when probing failed.
	Info *MediaInfo
}

// Transform fits one input into its target cell.
type Transform struct {
	Role   string
	Target Dimensions
	Fit    FitMode
	FPS    int
	// Scaled is the size after scaling; zero when the input size is
	// unknown and ffmpeg computes it.
	Scaled Dimensions
	// Offset is the crop origin for cover, the pad origin for contain.
	OffsetX int
	OffsetY int
}

// Combine describes how transformed inputs are joined.
type Combine struct {
	// Layout is "vstack" or "none".
	Layout string
	// AudioRole is the input whose audio is kept, "" for silence.
	AudioRole string
}

// OutputSpec is one file the plan produces.
type OutputSpec struct {
	Role      string
	Path      string
	Container string
}

// Plan is a complete, immutable description of a composition.
type Plan struct {
	Mode       Mode
	Duration   float64
	Canvas     Dimensions
	Inputs     []Input
	Transforms []Transform
	Combine    Combine
	Outputs    []OutputSpec
	Options    Options
}

// Request is what a plan is built from.
type Request struct {
	Mode Mode
	// Main carries the clip window. Background is rebased to start at
	// BackgroundStart and looped over the same duration.
	Main            Input
	Background      Input
	BackgroundStart float64
	// Outputs maps each output role of the mode to its destination path.
	Outputs map[string]string
}

// NewPlan builds a plan. It has no side effects.
func NewPlan(req Request, opts Options) (*Plan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = ModeStacked
	}
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return nil, err
	}
	if req.Main.Path == "" || req.Background.Path == "" {
		return nil, errors.New("both main and background inputs are required")
	}

	d := req.Main.Window.Duration()
	if req.Main.Window.Start < 0 || d <= 0 {
		return nil, fmt.Errorf("invalid window [%v, %v)", req.Main.Window.Start, req.Main.Window.End)
	}
	if req.BackgroundStart < 0 {
		return nil, fmt.Errorf("background start must not be negative, got %v", req.BackgroundStart)
	}

	main := req.Main
	main.Role = RoleMain
	main.Loop = false

	bg := req.Background
	bg.Role = RoleBackground
	bg.Window = Window{Start: req.BackgroundStart, End: req.BackgroundStart + d}
	bg.Loop = true

	cell := opts.Cell()

	p := &Plan{
		Mode:     req.Mode,
		Duration: d,
		Canvas:   opts.Canvas,
		Inputs:   []Input{main, bg},
		Transforms: []Transform{
			FitTransform(RoleMain, main.Info, cell, opts.Fit, opts.FPS),
			FitTransform(RoleBackground, bg.Info, cell, opts.Fit, opts.FPS),
		},
		Combine: Combine{Layout: "vstack", AudioRole: audioRole(main.Info, bg.Info)},
		Options: opts,
	}
	if req.Mode == ModeSeparate {
		p.Combine.Layout = "none"
	}

	for _, r := range OutputRoles(req.Mode) {
		path := req.Outputs[r.Role]
		if path == "" {
			return nil, fmt.Errorf("no destination for output %q", r.Role)
		}
		container := "mp4"
		switch r.Ext {
		case ".m4a":
			container = "ipod"
		case ".jpg":
			container = "jpeg"
		}
		p.Outputs = append(p.Outputs, OutputSpec{Role: r.Role, Path: path, Container: container})
	}

	return p, nil
}

// audioRole picks main audio, then background audio, then silence. An
// unprobed main is assumed to carry audio; stacked renders map it
// optionally and separate renders fall back to silence when it is missing.
func audioRole(main, bg *MediaInfo) string {
	switch {
	case main == nil || main.HasAudio:
		return RoleMain
	case bg == nil || bg.HasAudio:
		return RoleBackground
	default:
		return ""
	}
}

// Input returns the input with role.
func (p *Plan) Input(role string) (Input, bool) {
	for _, in := range p.Inputs {
		if in.Role == role {
			return in, true
		}
	}
	return Input{}, false
}

// Output returns the output with role.
func (p *Plan) Output(role string) (OutputSpec, bool) {
	for _, o := range p.Outputs {
		if o.Role == role {
			return o, true
		}
	}
	return OutputSpec{}, false
}

// FitTransform computes scaling for fitting a source of the probed size into
// target. With unknown dimensions the transform leaves sizing to ffmpeg.
func FitTransform(role string, info *MediaInfo, target Dimensions, fit FitMode, fps int) Transform {
	t := Transform{Role: role, Target: target, Fit: fit, FPS: fps}
	if info == nil || info.Width <= 0 || info.Height <= 0 {
		return t
	}

	w, h := float64(info.Width), float64(info.Height)
	tw, th := float64(target.Width), float64(target.Height)

	if fit == FitContain {
		f := math.Min(tw/w, th/h)
		sw := evenFloor(w * f)
		sh := evenFloor(h * f)
		sw, sh = min(sw, target.Width), min(sh, target.Height)
		t.Scaled = Dimensions{Width: sw, Height: sh}
		t.OffsetX = (target.Width - sw) / 2
		t.OffsetY = (target.Height - sh) / 2
		return t
	}

	f := math.Max(tw/w, th/h)
	sw := max(evenCeil(w*f), target.Width)
	sh := max(evenCeil(h*f), target.Height)
	t.Scaled = Dimensions{Width: sw, Height: sh}
	t.OffsetX = (sw - target.Width) / 2
	t.OffsetY = (sh - target.Height) / 2
	return t
}

// evenCeil rounds up to an even integer. A tiny tolerance absorbs float
// noise so that 1080.0000001 stays 1080.
func evenCeil(v float64) int {
	n := int(math.Ceil(v/2-1e-9)) * 2
	if n < 2 {
		n = 2
	}
	return n
}

func evenFloor(v float64) int {
	n := int(math.Floor(v/2+1e-9)) * 2
	if n < 2 {
		n = 2
	}
	return n
}
