package render

import (
	"context"
	"image"
	"image/draw"
)

// ImageRenderer composes screens offscreen. It backs the simulator and the
// screen preview endpoint.
type ImageRenderer struct {
	compositor
	screen *image.RGBA
}

func NewImageRenderer(logger Logger) *ImageRenderer {
	r := &ImageRenderer{}
	r.compositor.init(logger, r.keep)
	return r
}

func (r *ImageRenderer) Start(ctx context.Context) error {
	r.logger.Infof("render", "headless renderer started %dx%d", CanvasWidth, CanvasHeight)
	return nil
}

func (r *ImageRenderer) Stop() error { return nil }

// keep runs under the compositor lock.
func (r *ImageRenderer) keep(canvas *image.RGBA) error {
	if r.screen == nil || r.screen.Bounds() != canvas.Bounds() {
		r.screen = image.NewRGBA(canvas.Bounds())
	}
	draw.Draw(r.screen, r.screen.Bounds(), canvas, canvas.Bounds().Min, draw.Src)
	return nil
}

// Last returns a copy of the most recently composed screen, or nil.
func (r *ImageRenderer) Last() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.screen == nil {
		return nil
	}
	out := image.NewRGBA(r.screen.Bounds())
	copy(out.Pix, r.screen.Pix)
	return out
}
