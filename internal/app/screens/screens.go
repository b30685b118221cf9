package screens

import (
	"context"
	"image"

	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/render/layout"
)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

const (
	headerHeight = 180
	marginPx     = 40
)

// static provides the Start/Stop pair for screens without background work.
type static struct{}

func (static) Start(ctx context.Context) error { return nil }
func (static) Stop() error                     { return nil }

func canvasRect(d render.Drawer) image.Rectangle {
	w, h := d.Size()
	return image.Rect(0, 0, w, h)
}

// splitHeader returns the header band and the inset body below it.
func splitHeader(d render.Drawer) (header image.Rectangle, body image.Rectangle) {
	header, body = layout.SplitHorizontal(canvasRect(d), headerHeight)
	return header, layout.Inset(body, marginPx)
}

func drawHeader(d render.Drawer, header image.Rectangle, text string) {
	metrics := d.MeasureText(text, render.TextStyle{Size: render.BodySize})
	y := header.Min.Y + (header.Dy()-metrics.Height)/2
	d.DrawText(text, header.Min.X+header.Dx()/2, y, render.TextStyle{Size: render.BodySize, Align: render.TextAlignCenter})
}

func drawFooter(d render.Drawer, text string) {
	w, h := d.Size()
	d.DrawText(text, w/2, h-2*marginPx, render.TextStyle{Size: render.SmallSize, Color: render.Muted, Align: render.TextAlignCenter})
}
