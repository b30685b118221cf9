package screens

import (
	"fmt"

	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/state"
)

// PlayingScreen shows the latest interlaced frame scaled into the canvas.
type PlayingScreen struct{ static }

func (PlayingScreen) Draw(d render.Drawer, st state.State) {
	header, body := splitHeader(d)
	drawHeader(d, header, fmt.Sprintf("frame %d", st.Frame.Version))
	if st.Frame.Surface == nil {
		d.DrawText("waiting for the first frame", body.Min.X+body.Dx()/2, body.Min.Y, render.TextStyle{Color: render.Muted, Align: render.TextAlignCenter})
		return
	}
	d.DrawImageInRect(st.Frame.Surface, body, render.ScaleModeFit)
	if st.Err != "" {
		drawFooter(d, st.Err)
	}
}
