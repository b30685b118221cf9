package render

import (
	"context"
	"image"
	"image/color"

	fb "github.com/gonutz/framebuffer"
)

const DefaultFramebuffer = "/dev/fb0"

// FBRenderer renders to the Linux framebuffer using an offscreen logical canvas.
type FBRenderer struct {
	compositor
	Device string
	fbDev  *fb.Device
}

func NewFBRenderer(logger Logger) *FBRenderer {
	r := &FBRenderer{Device: DefaultFramebuffer}
	r.compositor.init(logger, r.blit)
	return r
}

func (r *FBRenderer) Start(ctx context.Context) error {
	device := r.Device
	if device == "" {
		device = DefaultFramebuffer
	}
	dev, err := fb.Open(device)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.fbDev = dev
	r.mu.Unlock()
	bounds := dev.Bounds()
	r.logger.Infof("fb", "framebuffer open, bounds=%dx%d", bounds.Dx(), bounds.Dy())
	return nil
}

func (r *FBRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fbDev != nil {
		r.fbDev.Close()
		r.fbDev = nil
	}
	return nil
}

func (r *FBRenderer) blit(canvas *image.RGBA) error {
	if r.fbDev == nil {
		return nil
	}
	blitToFB(r.fbDev, canvas)
	return nil
}

// blitToFB writes canvas to the framebuffer with nearest-neighbour sampling.
func blitToFB(dev *fb.Device, canvas *image.RGBA) {
	bounds := dev.Bounds()
	fbWidth := bounds.Dx()
	fbHeight := bounds.Dy()
	canvasWidth := canvas.Bounds().Dx()
	canvasHeight := canvas.Bounds().Dy()
	for y := 0; y < fbHeight; y++ {
		sy := (y * canvasHeight) / fbHeight
		for x := 0; x < fbWidth; x++ {
			sx := (x * canvasWidth) / fbWidth
			pixel := canvas.RGBAAt(sx, sy)
			dev.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
}
