package interlace

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// columnImage builds a 3 pixel wide image whose first opaqueRows rows are
// opaque and the rest fully transparent.
func columnImage(height, opaqueRows int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, height))
	for y := 0; y < opaqueRows; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 0xFF})
		}
	}
	return img
}

func TestMeasureSquash(t *testing.T) {
	tests := []struct {
		name   string
		img    image.Image
		expect Ratio
	}{
		{"opaque", solid(16, 64, red), 1},
		{"bottom half transparent", columnImage(64, 32), 0.5},
		{"bottom quarter transparent", columnImage(64, 48), 0.75},
		{"fully transparent", columnImage(64, 0), 1},
		{"single row", solid(5, 1, blue), 1},
		{"empty", image.NewRGBA(image.Rect(0, 0, 0, 0)), 1},
		{"offset bounds", solid(4, 8, red).SubImage(image.Rect(1, 2, 3, 8)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MeasureSquash(tt.img); got != tt.expect {
				t.Fatalf("MeasureSquash = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestMeasureSquashBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		height := 1 + rng.Intn(300)
		img := image.NewNRGBA(image.Rect(0, 0, 1, height))
		for y := 0; y < height; y++ {
			if rng.Intn(2) == 0 {
				img.SetNRGBA(0, y, color.NRGBA{A: uint8(1 + rng.Intn(255))})
			}
		}
		ratio := MeasureSquash(img)
		if ratio <= 0 || ratio > 1 {
			t.Fatalf("height %d: ratio %v out of (0,1]", height, ratio)
		}
	}
}

func TestSquashCorrectorCachesPerImage(t *testing.T) {
	calls := 0
	corrector := NewSquashCorrector()
	corrector.Measure = func(image.Image) Ratio {
		calls++
		return 0.5
	}
	a := NewImage("a", solid(2, 2, red))
	b := NewImage("b", solid(2, 2, blue))

	for i := 0; i < 3; i++ {
		if got := corrector.Ratio(a); got != 0.5 {
			t.Fatalf("Ratio(a) = %v", got)
		}
	}
	corrector.Ratio(b)
	if calls != 2 {
		t.Fatalf("measure called %d times, want 2", calls)
	}

	corrector.Forget([]*Image{b})
	corrector.Ratio(a)
	if calls != 3 {
		t.Fatalf("measure called %d times after Forget, want 3", calls)
	}
}
