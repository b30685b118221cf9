package screens

import (
	"fmt"

	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/state"
)

type LoadingScreen struct{ static }

func (LoadingScreen) Draw(d render.Drawer, st state.State) {
	w, h := d.Size()
	d.DrawTitle("loading", h/2)
	d.DrawText(fmt.Sprintf("%d images", len(st.Images)), w/2, h/2+marginPx, render.TextStyle{Size: render.BodySize, Color: render.Muted, Align: render.TextAlignCenter})
}
