package compose

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

// renderThumbnail grabs a frame from the combined video and writes a
// resized JPEG to dest.
func (c *Composer) renderThumbnail(ctx context.Context, plan *Plan, combinedPath, dest string) error {
	frame := strings.TrimSuffix(dest, ".jpg") + ".frame.png"
	defer os.Remove(frame)

	if err := c.tr.Run(ctx, plan.ThumbnailFrameArgs(combinedPath, frame)...); err != nil {
		return fmt.Errorf("frame grab: %w", err)
	}

	return ResizeThumbnail(frame, dest, plan.Options.ThumbWidth)
}

// ResizeThumbnail scales the image at src to width (keeping aspect ratio)
// and saves it as JPEG at dest.
func ResizeThumbnail(src, dest string, width int) error {
	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open frame: %w", err)
	}

	if width > 0 && img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, dest, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}
