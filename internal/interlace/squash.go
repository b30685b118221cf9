package interlace

import (
	"image"
	"image/draw"
	"sync"
)

// MeasureSquash detects the vertical squash some decoders apply to images
// and returns the ratio to multiply source rectangles by. It draws the image
// into a one pixel wide column and binary searches the lowest row whose alpha
// is not zero. The result is in (0, 1].
func MeasureSquash(img image.Image) Ratio {
	if img == nil {
		return 1
	}
	bounds := img.Bounds()
	naturalHeight := bounds.Dy()
	if naturalHeight <= 0 || bounds.Dx() <= 0 {
		return 1
	}

	column := image.NewNRGBA(image.Rect(0, 0, 1, naturalHeight))
	draw.Draw(column, column.Bounds(), img, bounds.Min, draw.Src)

	// sy: last row seen opaque, ey: last row seen transparent.
	sy, ey, py := 0, naturalHeight, naturalHeight
	for py > sy {
		alpha := column.Pix[(py-1)*column.Stride+3]
		if alpha == 0 {
			ey = py
		} else {
			sy = py
		}
		py = (ey + sy) >> 1
	}

	ratio := Ratio(float64(py) / float64(naturalHeight))
	if ratio == 0 {
		return 1
	}
	return ratio
}

// SquashCorrector caches MeasureSquash per loaded image.
type SquashCorrector struct {
	// Measure defaults to MeasureSquash.
	Measure func(image.Image) Ratio

	mu     sync.Mutex
	ratios map[*Image]Ratio
}

func NewSquashCorrector() *SquashCorrector {
	return &SquashCorrector{Measure: MeasureSquash, ratios: make(map[*Image]Ratio)}
}

// Ratio returns the cached ratio for img, measuring it on first use.
func (c *SquashCorrector) Ratio(img *Image) Ratio {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ratios == nil {
		c.ratios = make(map[*Image]Ratio)
	}
	if ratio, ok := c.ratios[img]; ok {
		return ratio
	}
	measure := c.Measure
	if measure == nil {
		measure = MeasureSquash
	}
	ratio := measure(img.Bitmap)
	c.ratios[img] = ratio
	return ratio
}

// Forget drops cached ratios for images that are no longer in use.
func (c *SquashCorrector) Forget(keep []*Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := make(map[*Image]struct{}, len(keep))
	for _, img := range keep {
		live[img] = struct{}{}
	}
	for img := range c.ratios {
		if _, ok := live[img]; !ok {
			delete(c.ratios, img)
		}
	}
}
