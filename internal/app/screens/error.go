package screens

import (
	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/state"
)

type ErrorScreen struct{ static }

func (ErrorScreen) Draw(d render.Drawer, st state.State) {
	w, h := d.Size()
	d.DrawTitle("something broke", h/2)
	message := st.Err
	if message == "" {
		message = "unknown error"
	}
	d.DrawText(message, w/2, h/2+marginPx, render.TextStyle{Size: render.SmallSize, Color: render.ErrorColor, Align: render.TextAlignCenter})
	drawFooter(d, "reset the game to try again")
}
