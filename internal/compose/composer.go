package compose

import (
	"context"
	"fmt"
	"time"

	"clip-stacker/internal/filesystem"
	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
	"clip-stacker/internal/transcoder"
)

// Composer executes plans with ffmpeg.
type Composer struct {
	tr   *transcoder.Transcoder
	opts Options
}

// NewComposer creates a Composer rendering with opts.
func NewComposer(tr *transcoder.Transcoder, opts Options) *Composer {
	return &Composer{tr: tr, opts: opts}
}

// Options returns the rendering options.
func (c *Composer) Options() Options { return c.opts }

// Probe reads dimensions, duration and audio presence of path.
func (c *Composer) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	return c.tr.GetVideoInfo(ctx, path)
}

// Execute renders every output of plan in order and verifies each is a
// non-empty file. It returns output paths keyed by role. Rendering is not
// retried; the first failure is returned as *Error.
func (c *Composer) Execute(ctx context.Context, plan *Plan) (map[string]string, error) {
	produced := make(map[string]string, len(plan.Outputs))

	for _, out := range plan.Outputs {
		start := time.Now()
		err := c.render(ctx, plan, out)
		if err == nil {
			_, err = filesystem.VerifyNonEmpty(out.Path)
		}
		metrics.CompositionDuration.WithLabelValues(out.Role).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.CompositionsTotal.WithLabelValues(out.Role, "error").Inc()
			return produced, &Error{Output: out.Role, Err: err}
		}

		metrics.CompositionsTotal.WithLabelValues(out.Role, "success").Inc()
		logging.Debug("Rendered %s in %v", out.Role, time.Since(start).Round(time.Millisecond))
		produced[out.Role] = out.Path
	}

	return produced, nil
}

func (c *Composer) render(ctx context.Context, plan *Plan, out OutputSpec) error {
	if out.Role == OutputThumbnail {
		combined, ok := plan.Output(OutputCombined)
		if !ok {
			return fmt.Errorf("thumbnail requires a combined output")
		}
		return c.renderThumbnail(ctx, plan, combined.Path, out.Path)
	}

	args, err := plan.Args(out.Role)
	if err != nil {
		return err
	}
	err = c.tr.Run(ctx, args...)
	if err != nil && out.Role == OutputAudio && ctx.Err() == nil && plan.audioUnprobed() {
		logging.Warn("Audio track of unprobed %s source unavailable, rendering silence: %v", plan.Combine.AudioRole, err)
		return c.tr.Run(ctx, plan.silentAudioArgs(out)...)
	}
	return err
}
