package interlace

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	InterpolationBilinear   = "bilinear"
	InterpolationNearest    = "nearest"
	InterpolationCatmullRom = "catmullrom"
)

func interpolator(name string) (xdraw.Interpolator, error) {
	switch name {
	case "", InterpolationBilinear:
		return xdraw.ApproxBiLinear, nil
	case InterpolationNearest:
		return xdraw.NearestNeighbor, nil
	case InterpolationCatmullRom:
		return xdraw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("interlace: unknown interpolation %q", name)
	}
}

// DrawCall is one drawImage(src, sx, sy, sw, sh, dx, dy, dw, dh) operation.
// The source rectangle is already squash corrected.
type DrawCall struct {
	Image *Image

	SX, SY ImagePx
	SW, SH ImagePx

	DX, DY SurfacePx
	DW, DH SurfacePx
}

// PlanCell computes the draw call for one cell.
//
// The source extent runs from the cell origin to the far edge of the image and
// the destination extent is scaled to match, so each draw covers everything
// right of and below the cell. Later cells overwrite the overflow.
//
// The destination extent is derived from the uncorrected source extent while
// the source rectangle handed to the draw is squash corrected.
func PlanCell(cell Cell, img *Image, surfaceWidth, surfaceHeight SurfacePx, squash Ratio) DrawCall {
	naturalWidth := ImagePx(img.NaturalWidth)
	naturalHeight := ImagePx(img.NaturalHeight)

	widthRatio := Ratio(float64(naturalWidth) / float64(surfaceWidth))
	heightRatio := Ratio(float64(naturalHeight) / float64(surfaceHeight))

	sx := ImagePx(float64(cell.Left) * float64(widthRatio))
	sy := ImagePx(float64(cell.Top) * float64(heightRatio))
	sWidth := naturalWidth - sx
	sHeight := naturalHeight - sy

	dWidth := SurfacePx(float64(surfaceWidth) * float64(sWidth) / float64(naturalWidth))
	dHeight := SurfacePx(float64(surfaceHeight) * float64(sHeight) / float64(naturalHeight))

	return DrawCall{
		Image: img,
		SX:    sx * ImagePx(squash),
		SY:    sy * ImagePx(squash),
		SW:    sWidth * ImagePx(squash),
		SH:    sHeight * ImagePx(squash),
		DX:    cell.Left,
		DY:    cell.Top,
		DW:    dWidth,
		DH:    dHeight,
	}
}

// Renderer draws partitioned cells onto a surface.
type Renderer struct {
	Interpolator xdraw.Interpolator
	Squash       *SquashCorrector
}

func NewRenderer(interp xdraw.Interpolator) *Renderer {
	if interp == nil {
		interp = xdraw.ApproxBiLinear
	}
	return &Renderer{Interpolator: interp, Squash: NewSquashCorrector()}
}

// Render draws every cell in order. Primary cells sample images[0], the
// others images[1].
func (r *Renderer) Render(surface *image.RGBA, cells []Cell, images []*Image) error {
	if surface == nil {
		return ErrNotInitialized
	}
	if len(images) < 2 {
		return fmt.Errorf("%w (got %d)", ErrNotEnoughImages, len(images))
	}
	for _, img := range images[:2] {
		if img == nil || !img.Loaded() {
			return ErrImagesNotLoaded
		}
		if img.NaturalWidth <= 0 || img.NaturalHeight <= 0 {
			return fmt.Errorf("%w: %s", ErrEmptyImage, img.Source)
		}
	}
	if r.Squash == nil {
		r.Squash = NewSquashCorrector()
	}
	interp := r.Interpolator
	if interp == nil {
		interp = xdraw.ApproxBiLinear
	}

	bounds := surface.Bounds()
	surfaceWidth := SurfacePx(bounds.Dx())
	surfaceHeight := SurfacePx(bounds.Dy())
	for _, cell := range cells {
		img := images[1]
		if cell.Primary {
			img = images[0]
		}
		call := PlanCell(cell, img, surfaceWidth, surfaceHeight, r.Squash.Ratio(img))
		drawImage(surface, call, interp)
	}
	return nil
}

// drawImage maps the fractional source rectangle onto the fractional
// destination rectangle, replacing the destination pixels whose centres fall
// inside it.
func drawImage(surface *image.RGBA, call DrawCall, interp xdraw.Interpolator) {
	if call.SW <= 0 || call.SH <= 0 || call.DW <= 0 || call.DH <= 0 {
		return
	}
	src := call.Image.Bitmap
	srcBounds := src.Bounds()

	srcMinX := float64(srcBounds.Min.X) + float64(call.SX)
	srcMinY := float64(srcBounds.Min.Y) + float64(call.SY)
	scaleX := float64(call.DW) / float64(call.SW)
	scaleY := float64(call.DH) / float64(call.SH)

	s2d := f64.Aff3{
		scaleX, 0, float64(call.DX) - srcMinX*scaleX,
		0, scaleY, float64(call.DY) - srcMinY*scaleY,
	}

	sr := image.Rect(
		int(math.Floor(srcMinX)),
		int(math.Floor(srcMinY)),
		int(math.Ceil(srcMinX+float64(call.SW))),
		int(math.Ceil(srcMinY+float64(call.SH))),
	).Intersect(srcBounds)
	if sr.Empty() {
		return
	}

	minX, maxX := pixelSpan(float64(call.DX), float64(call.DX+call.DW))
	minY, maxY := pixelSpan(float64(call.DY), float64(call.DY+call.DH))
	dr := image.Rect(minX, minY, maxX, maxY).Intersect(surface.Bounds())
	if dr.Empty() {
		return
	}
	dst, ok := surface.SubImage(dr).(*image.RGBA)
	if !ok {
		return
	}
	interp.Transform(dst, s2d, src, sr, xdraw.Src, nil)
}

// pixelSpan returns the pixel indices [min, max) whose centres lie in [lo, hi).
func pixelSpan(lo, hi float64) (int, int) {
	return int(math.Ceil(lo - 0.5)), int(math.Ceil(hi - 0.5))
}
