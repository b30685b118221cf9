package screens

import (
	"fmt"

	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/render/layout"
	"github.com/rook-computer/interlace/internal/state"
)

// ResultScreen shows the final frame next to a QR code that links to the
// full resolution PNG.
type ResultScreen struct {
	static
	URL    string
	Logger Logger

	qr render.QRCache
}

func NewResultScreen(url string, logger Logger) *ResultScreen {
	return &ResultScreen{URL: url, Logger: logger}
}

func (s *ResultScreen) Draw(d render.Drawer, st state.State) {
	header, body := splitHeader(d)
	drawHeader(d, header, fmt.Sprintf("result after %d frames", st.Frame.Version))

	frameArea, side := layout.SplitVertical(body, body.Dx()*2/3)
	if st.Frame.Surface != nil {
		d.DrawImageInRect(st.Frame.Surface, layout.Inset(frameArea, marginPx/2), render.ScaleModeFit)
	}

	if s.URL == "" {
		return
	}
	side = layout.Inset(side, marginPx/2)
	qrArea, caption := layout.SplitHorizontal(side, side.Dx())
	square := layout.FitSquare(qrArea)
	qr, err := s.qr.Image(s.URL, square.Dx())
	if err != nil {
		if s.Logger != nil {
			s.Logger.Errorf("screen", "qr code failed: %v", err)
		}
		return
	}
	d.DrawImageInRect(qr, square, render.ScaleModeFit)
	d.DrawText("scan for the full image", caption.Min.X+caption.Dx()/2, caption.Min.Y+marginPx/2, render.TextStyle{Size: render.SmallSize, Align: render.TextAlignCenter})
}
