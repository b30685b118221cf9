package render

import "image/color"

// Global render configuration for colors and logical canvas.
var (
	Foreground = color.RGBA{R: 0x90, G: 0x00, B: 0xFF, A: 0xFF} // #9000ff
	Background = color.RGBA{R: 0xFF, G: 0xDC, B: 0x00, A: 0xFF} // #ffdc00
	Muted      = color.RGBA{R: 0x5A, G: 0x4A, B: 0x00, A: 0xFF}
	ErrorColor = color.RGBA{R: 0xC0, G: 0x10, B: 0x10, A: 0xFF}

	// Logical canvas size; scaled to the display.
	CanvasWidth  = 1920
	CanvasHeight = 1080

	// Point sizes used by screens.
	TitleSize = 120
	BodySize  = 48
	SmallSize = 28
)
