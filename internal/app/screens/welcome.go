package screens

import (
	"fmt"

	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/state"
)

type WelcomeScreen struct{ static }

func (WelcomeScreen) Draw(d render.Drawer, st state.State) {
	w, h := d.Size()
	d.DrawTitle("interlace", h/2)

	message := "add two images to play"
	if n := len(st.Images); n >= 2 {
		message = fmt.Sprintf("%d images ready", n)
	}
	d.DrawText(message, w/2, h/2+marginPx, render.TextStyle{Size: render.BodySize, Align: render.TextAlignCenter})
	drawFooter(d, "start a game from the web ui")
}
