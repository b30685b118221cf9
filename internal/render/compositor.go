package render

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/rook-computer/interlace/internal/state"
)

// frameInterval paces RunLoop; redraws only happen when the state changed.
const frameInterval = time.Second / 30

type redrawKey struct {
	phase   state.Phase
	version uint64
	err     string
	images  int
}

func keyOf(snap state.State) redrawKey {
	return redrawKey{phase: snap.Phase, version: snap.Frame.Version, err: snap.Err, images: len(snap.Images)}
}

// compositor owns the logical canvas and the current screen. Display
// backends embed it and supply a present func.
type compositor struct {
	mu      sync.Mutex
	canvas  *Canvas
	current Screen
	last    redrawKey
	drawn   bool
	present func(*image.RGBA) error
	logger  Logger
}

func (c *compositor) init(logger Logger, present func(*image.RGBA) error) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
	c.present = present
	c.canvas = NewCanvas(CanvasWidth, CanvasHeight, logger)
}

func (c *compositor) SetScreen(screen Screen) {
	c.mu.Lock()
	c.current = screen
	c.drawn = false
	c.mu.Unlock()
}

// RedrawWithState draws the current screen for snap unconditionally.
func (c *compositor) RedrawWithState(snap state.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redrawLocked(snap)
}

func (c *compositor) redrawLocked(snap state.State) {
	if c.canvas == nil || c.current == nil {
		return
	}
	c.canvas.FillBackground()
	c.current.Draw(c.canvas, snap)
	if c.present != nil {
		if err := c.present(c.canvas.Image()); err != nil {
			c.logger.Errorf("render", "present failed: %v", err)
		}
	}
	c.last = keyOf(snap)
	c.drawn = true
}

// redrawIfChanged redraws when snap differs from the last drawn state.
func (c *compositor) redrawIfChanged(snap state.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drawn && keyOf(snap) == c.last {
		return false
	}
	c.redrawLocked(snap)
	return true
}

func (c *compositor) RunLoop(ctx context.Context, store *state.Store) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := store.Snapshot()
			if c.redrawIfChanged(snap) {
				c.logger.Infof("render", "redraw phase=%s frame=%d", snap.Phase, snap.Frame.Version)
			}
		}
	}
}
