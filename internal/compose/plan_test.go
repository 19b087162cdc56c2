package compose

import (
	"strings"
	"testing"
)

func TestFitTransformCover(t *testing.T) {
	cell := Dimensions{Width: 1080, Height: 960}

	tests := []struct {
		name         string
		w, h         int
		wantScaled   Dimensions
		wantX, wantY int
	}{
		{name: "landscape 1080p", w: 1920, h: 1080, wantScaled: Dimensions{1708, 960}, wantX: 314, wantY: 0},
		{name: "portrait 1080x1920", w: 1080, h: 1920, wantScaled: Dimensions{1080, 1920}, wantX: 0, wantY: 480},
		{name: "exact fit", w: 1080, h: 960, wantScaled: Dimensions{1080, 960}, wantX: 0, wantY: 0},
		{name: "small square upscales", w: 480, h: 480, wantScaled: Dimensions{1080, 1080}, wantX: 0, wantY: 60},
		{name: "odd source", w: 641, h: 361, wantScaled: Dimensions{1706, 960}, wantX: 313, wantY: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := FitTransform(RoleMain, &MediaInfo{Width: tt.w, Height: tt.h}, cell, FitCover, 30)
			if tr.Scaled != tt.wantScaled {
				t.Errorf("Scaled = %v, want %v", tr.Scaled, tt.wantScaled)
			}
			if tr.OffsetX != tt.wantX || tr.OffsetY != tt.wantY {
				t.Errorf("offset = (%d,%d), want (%d,%d)", tr.OffsetX, tr.OffsetY, tt.wantX, tt.wantY)
			}
			if tr.Scaled.Width < cell.Width || tr.Scaled.Height < cell.Height {
				t.Error("cover must fill the cell")
			}
			if tr.Scaled.Width%2 != 0 || tr.Scaled.Height%2 != 0 {
				t.Error("scaled dimensions must be even")
			}
		})
	}
}

func TestFitTransformContain(t *testing.T) {
	cell := Dimensions{Width: 1080, Height: 960}

	tr := FitTransform(RoleMain, &MediaInfo{Width: 1920, Height: 1080}, cell, FitContain, 30)
	if tr.Scaled != (Dimensions{1080, 606}) {
		t.Errorf("Scaled = %v, want 1080x606", tr.Scaled)
	}
	if tr.OffsetX != 0 || tr.OffsetY != 177 {
		t.Errorf("pad offset = (%d,%d), want (0,177)", tr.OffsetX, tr.OffsetY)
	}

	tr = FitTransform(RoleMain, &MediaInfo{Width: 1080, Height: 1920}, cell, FitContain, 30)
	if tr.Scaled != (Dimensions{540, 960}) || tr.OffsetX != 270 || tr.OffsetY != 0 {
		t.Errorf("portrait contain = %+v", tr)
	}
}

func TestFitTransformUnknownSize(t *testing.T) {
	cell := Dimensions{Width: 1080, Height: 960}

	cover := FitTransform(RoleMain, nil, cell, FitCover, 30)
	if cover.Scaled.Width != 0 {
		t.Error("unknown size should leave scaling to ffmpeg")
	}
	if f := cover.Filter(); f != "fps=30,scale=1080:960:force_original_aspect_ratio=increase,crop=1080:960,setsar=1" {
		t.Errorf("cover filter = %q", f)
	}

	contain := FitTransform(RoleMain, &MediaInfo{}, cell, FitContain, 25)
	if f := contain.Filter(); !strings.Contains(f, "force_original_aspect_ratio=decrease") || !strings.Contains(f, "pad=1080:960:(ow-iw)/2:(oh-ih)/2") {
		t.Errorf("contain filter = %q", f)
	}
}

func TestTransformFilterKnownSize(t *testing.T) {
	tr := FitTransform(RoleMain, &MediaInfo{Width: 1920, Height: 1080}, Dimensions{1080, 960}, FitCover, 30)
	want := "fps=30,scale=1708:960,crop=1080:960:314:0,setsar=1"
	if got := tr.Filter(); got != want {
		t.Errorf("Filter() = %q, want %q", got, want)
	}

	tr = FitTransform(RoleMain, &MediaInfo{Width: 1920, Height: 1080}, Dimensions{1080, 960}, FitContain, 30)
	want = "fps=30,scale=1080:606,pad=1080:960:0:177:color=black,setsar=1"
	if got := tr.Filter(); got != want {
		t.Errorf("Filter() = %q, want %q", got, want)
	}
}

func stackedRequest() Request {
	return Request{
		Mode: ModeStacked,
		Main: Input{
			Path:   "/work/main.mp4",
			Window: Window{Start: 30, End: 45},
			Info:   &MediaInfo{Width: 1920, Height: 1080, HasAudio: true, Duration: 120},
		},
		Background: Input{
			Path: "/work/bg.mp4",
			Info: &MediaInfo{Width: 1280, Height: 720, Duration: 8},
		},
		Outputs: map[string]string{
			OutputCombined:  "/work/combined.mp4",
			OutputThumbnail: "/work/thumb.jpg",
		},
	}
}

func TestNewPlanStacked(t *testing.T) {
	p, err := NewPlan(stackedRequest(), DefaultOptions())
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}

	if p.Duration != 15 {
		t.Errorf("Duration = %v, want 15", p.Duration)
	}
	if p.Canvas != (Dimensions{1080, 1920}) {
		t.Errorf("Canvas = %v", p.Canvas)
	}
	if p.Combine.Layout != "vstack" || p.Combine.AudioRole != RoleMain {
		t.Errorf("Combine = %+v", p.Combine)
	}

	bg, _ := p.Input(RoleBackground)
	if !bg.Loop || bg.Window.Start != 0 || bg.Window.Duration() != 15 {
		t.Errorf("background input = %+v, want looped window [0,15)", bg)
	}
	main, _ := p.Input(RoleMain)
	if main.Loop || main.Window.Start != 30 {
		t.Errorf("main input = %+v", main)
	}

	for _, tr := range p.Transforms {
		if tr.Target != (Dimensions{1080, 960}) {
			t.Errorf("%s target = %v, want 1080x960", tr.Role, tr.Target)
		}
	}

	if len(p.Outputs) != 2 || p.Outputs[0].Role != OutputCombined || p.Outputs[1].Role != OutputThumbnail {
		t.Errorf("Outputs = %+v", p.Outputs)
	}
}

func TestNewPlanBackgroundOffset(t *testing.T) {
	req := stackedRequest()
	req.BackgroundStart = 4.5

	p, err := NewPlan(req, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	bg, _ := p.Input(RoleBackground)
	if bg.Window != (Window{Start: 4.5, End: 19.5}) {
		t.Errorf("background window = %+v", bg.Window)
	}
}

func TestNewPlanAudioFallback(t *testing.T) {
	req := stackedRequest()
	req.Main.Info.HasAudio = false
	req.Background.Info.HasAudio = true
	p, _ := NewPlan(req, DefaultOptions())
	if p.Combine.AudioRole != RoleBackground {
		t.Errorf("AudioRole = %q, want background", p.Combine.AudioRole)
	}

	req.Background.Info.HasAudio = false
	p, _ = NewPlan(req, DefaultOptions())
	if p.Combine.AudioRole != "" {
		t.Errorf("AudioRole = %q, want silence", p.Combine.AudioRole)
	}

	req.Main.Info = nil
	p, _ = NewPlan(req, DefaultOptions())
	if p.Combine.AudioRole != RoleMain {
		t.Errorf("AudioRole = %q, want main when unprobed", p.Combine.AudioRole)
	}
}

func TestNewPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request, *Options)
	}{
		{name: "empty window", mutate: func(r *Request, _ *Options) { r.Main.Window = Window{Start: 10, End: 10} }},
		{name: "negative start", mutate: func(r *Request, _ *Options) { r.Main.Window = Window{Start: -1, End: 10} }},
		{name: "missing background", mutate: func(r *Request, _ *Options) { r.Background.Path = "" }},
		{name: "missing output", mutate: func(r *Request, _ *Options) { delete(r.Outputs, OutputThumbnail) }},
		{name: "bad mode", mutate: func(r *Request, _ *Options) { r.Mode = "sideways" }},
		{name: "negative background start", mutate: func(r *Request, _ *Options) { r.BackgroundStart = -2 }},
		{name: "odd canvas", mutate: func(_ *Request, o *Options) { o.Canvas.Width = 1081 }},
		{name: "zero fps", mutate: func(_ *Request, o *Options) { o.FPS = 0 }},
		{name: "bad fit", mutate: func(_ *Request, o *Options) { o.Fit = "stretch" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := stackedRequest()
			opts := DefaultOptions()
			tt.mutate(&req, &opts)
			if _, err := NewPlan(req, opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeStacked {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("Separate"); err != nil || m != ModeSeparate {
		t.Errorf("ParseMode(Separate) = %v, %v", m, err)
	}
	if _, err := ParseMode("grid"); err == nil {
		t.Error("ParseMode(grid) should fail")
	}
	if f, err := ParseFitMode("CONTAIN"); err != nil || f != FitContain {
		t.Errorf("ParseFitMode(CONTAIN) = %v, %v", f, err)
	}
	if _, err := ParseFitMode("fill"); err == nil {
		t.Error("ParseFitMode(fill) should fail")
	}
}
