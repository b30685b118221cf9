package render

import (
	"context"
	"image"
	"image/color"

	"github.com/rook-computer/interlace/internal/state"
)

type Renderer interface {
	Start(ctx context.Context) error
	Stop() error
	SetScreen(screen Screen)
	RunLoop(ctx context.Context, store *state.Store)
	RedrawWithState(snap state.State)
}

type Screen interface {
	Start(ctx context.Context) error
	Stop() error
	Draw(r Drawer, s state.State)
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

type NoopRenderer struct{}

func (n *NoopRenderer) Start(ctx context.Context) error                 { return nil }
func (n *NoopRenderer) Stop() error                                     { return nil }
func (n *NoopRenderer) SetScreen(screen Screen)                         {}
func (n *NoopRenderer) RunLoop(ctx context.Context, store *state.Store) {}
func (n *NoopRenderer) RedrawWithState(snap state.State)                {}

// Drawer is an abstraction the renderer provides to screens to draw primitives
// without exposing the display details.
type Drawer interface {
	// Size returns the logical canvas size (in pixels) that screens draw into.
	Size() (width int, height int)

	FillBackground()

	MeasureText(text string, style TextStyle) TextMetrics
	// DrawText draws text with its top edge at y.
	DrawText(text string, x, y int, style TextStyle) TextMetrics
	// DrawTitle draws large display text centred horizontally on baselineY.
	DrawTitle(text string, baselineY int)

	DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode) image.Rectangle
}

type TextAlign int

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
)

// TextStyle describes how to render text.
// Coordinates for DrawText use a top-left anchor for Y.
// For X, Align controls how x is interpreted.
type TextStyle struct {
	Color color.Color
	Size  int // font size in points; 0 means BodySize
	Align TextAlign
}

type TextMetrics struct {
	Width      int
	Height     int
	Ascent     int
	Descent    int
	LineHeight int
}

type ScaleMode int

const (
	ScaleModeFit ScaleMode = iota
	ScaleModeFill
	ScaleModeStretch
)
