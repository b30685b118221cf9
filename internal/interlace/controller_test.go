package interlace

import (
	"context"
	"errors"
	"image"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	frames   []Frame
	errs     []error
	states   []State
	attached *image.RGBA
}

func (r *recorder) Attach(surface *image.RGBA) {
	r.mu.Lock()
	r.attached = surface
	r.mu.Unlock()
}

func (r *recorder) wire(c *Controller) {
	c.OnRender = func(f Frame) {
		r.mu.Lock()
		r.frames = append(r.frames, f)
		r.mu.Unlock()
	}
	c.OnError = func(err error) {
		r.mu.Lock()
		r.errs = append(r.errs, err)
		r.mu.Unlock()
	}
	c.OnStateChange = func(s State) {
		r.mu.Lock()
		r.states = append(r.states, s)
		r.mu.Unlock()
	}
}

func (r *recorder) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recorder) lastFrame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func newTestController(t *testing.T, opts Options) (*Controller, *memFetcher, *recorder) {
	t.Helper()
	fetcher := newMemFetcher()
	fetcher.add("a.png", encodePNG(t, solid(400, 400, red)))
	fetcher.add("b.png", encodePNG(t, solid(200, 200, blue)))
	fetcher.add("c.png", encodePNG(t, solid(400, 400, green)))
	fetcher.add("d.png", encodePNG(t, solid(400, 400, yellow)))

	rec := &recorder{}
	if opts.Interpolation == "" {
		opts.Interpolation = InterpolationNearest
	}
	c := New(rec, opts)
	c.Fetcher = fetcher
	rec.wire(c)
	return c, fetcher, rec
}

func TestControllerDefaults(t *testing.T) {
	c := New(nil, Options{})
	cfg := c.Config()
	if cfg.Width() != 400 || cfg.Height() != 400 || len(cfg.Images()) != 0 {
		t.Fatalf("config = %dx%d %v", cfg.Width(), cfg.Height(), cfg.Images())
	}
	if got := c.Points(); !reflect.DeepEqual(got, []Point{Pt(200, 200)}) {
		t.Fatalf("points = %v", got)
	}
	if c.State() != StateUnconfigured {
		t.Fatalf("state = %v", c.State())
	}
}

func TestControllerInitRendersDefaultGrid(t *testing.T) {
	c, _, rec := newTestController(t, Options{Images: []string{"a.png", "b.png"}})
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()

	if c.State() != StateReady {
		t.Fatalf("state = %v, err = %v", c.State(), c.Err())
	}
	if rec.attached == nil || rec.attached.Bounds() != image.Rect(0, 0, 400, 400) {
		t.Fatalf("mount got %v", rec.attached)
	}
	cells := c.Cells()
	if len(cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(cells))
	}
	for i, cell := range cells {
		if cell.Width != 200 || cell.Height != 200 {
			t.Errorf("cell %d = %+v", i, cell)
		}
	}
	if !cells[0].Primary || cells[1].Primary || cells[2].Primary || !cells[3].Primary {
		t.Errorf("primary pattern wrong: %+v", cells)
	}

	if rec.frameCount() != 1 {
		t.Fatalf("frames = %d, want 1", rec.frameCount())
	}
	frame := rec.lastFrame()
	if got := rgbaAt(frame.Surface, 10, 10); got != red {
		t.Errorf("top-left = %v, want red", got)
	}
	if got := rgbaAt(frame.Surface, 300, 10); got != blue {
		t.Errorf("top-right = %v, want blue", got)
	}
	if got := rgbaAt(rec.attached, 300, 300); got != red {
		t.Errorf("mounted bottom-right = %v, want red", got)
	}
	if !reflect.DeepEqual(rec.states, []State{StateImagesLoading, StateReady}) {
		t.Errorf("states = %v", rec.states)
	}
}

func TestControllerUpdateTwoPoints(t *testing.T) {
	c, _, rec := newTestController(t, Options{Images: []string{"a.png", "b.png"}})
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()

	points := []Point{Pt(100, 100), Pt(300, 300)}
	if err := c.Update(points); err != nil {
		t.Fatalf("Update: %v", err)
	}
	first := c.Cells()
	if len(first) != 9 {
		t.Fatalf("cells = %d, want 9", len(first))
	}
	xs := []SurfacePx{first[0].Left, first[1].Left, first[2].Left, first[2].Left + first[2].Width}
	if !reflect.DeepEqual(xs, []SurfacePx{0, 100, 300, 400}) {
		t.Errorf("x boundaries = %v", xs)
	}

	if err := c.Update(points); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if second := c.Cells(); !reflect.DeepEqual(first, second) {
		t.Errorf("Update is not idempotent:\n%v\n%v", first, second)
	}
	if rec.frameCount() != 3 {
		t.Errorf("frames = %d, want 3", rec.frameCount())
	}
	frame := rec.lastFrame()
	if got := rgbaAt(frame.Surface, 200, 50); got != blue {
		t.Errorf("middle of top row = %v, want blue", got)
	}
	if got := rgbaAt(frame.Surface, 200, 200); got != red {
		t.Errorf("centre = %v, want red", got)
	}
}

func TestControllerUpdateBeforeReadyIsUsedOnLoad(t *testing.T) {
	c, fetcher, rec := newTestController(t, Options{Images: []string{"a.png", "b.png"}})
	fetcher.gate("a.png")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.Update([]Point{Pt(50, 50)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.frameCount() != 0 {
		t.Fatalf("rendered before images loaded")
	}
	fetcher.release("a.png")
	c.Wait()

	if rec.frameCount() != 1 {
		t.Fatalf("frames = %d, want 1", rec.frameCount())
	}
	if cells := rec.lastFrame().Cells; cells[0].Width != 50 {
		t.Errorf("first cell = %+v, want width 50", cells[0])
	}
}

func TestControllerSetImagesIgnoresStaleLoads(t *testing.T) {
	c, fetcher, rec := newTestController(t, Options{Images: []string{"a.png", "b.png"}})
	fetcher.gate("a.png")
	fetcher.gate("b.png")
	fetcher.gate("c.png")
	fetcher.gate("d.png")

	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.SetImages(context.Background(), []string{"c.png", "d.png"}); err != nil {
		t.Fatalf("SetImages: %v", err)
	}

	fetcher.release("a.png")
	fetcher.release("b.png")
	fetcher.release("c.png")
	// d.png still pending: nothing may render yet.
	time.Sleep(20 * time.Millisecond)
	if n := rec.frameCount(); n != 0 {
		t.Fatalf("rendered %d frames from a stale or partial set", n)
	}
	if c.State() != StateImagesLoading {
		t.Fatalf("state = %v", c.State())
	}

	fetcher.release("d.png")
	c.Wait()
	if rec.frameCount() != 1 {
		t.Fatalf("frames = %d, want 1", rec.frameCount())
	}
	frame := rec.lastFrame()
	if got := rgbaAt(frame.Surface, 10, 10); got != green {
		t.Errorf("primary = %v, want green", got)
	}
	if got := rgbaAt(frame.Surface, 300, 10); got != yellow {
		t.Errorf("secondary = %v, want yellow", got)
	}
	images := c.Images()
	if images[0].Source != "c.png" || images[1].Source != "d.png" {
		t.Errorf("images = %s, %s", images[0].Source, images[1].Source)
	}
}

func TestControllerSetImagesAfterReadyStopsRendering(t *testing.T) {
	c, fetcher, rec := newTestController(t, Options{Images: []string{"a.png", "b.png"}})
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()

	fetcher.gate("c.png")
	if err := c.SetImages(context.Background(), []string{"c.png", "d.png"}); err != nil {
		t.Fatalf("SetImages: %v", err)
	}
	if err := c.Update([]Point{Pt(10, 10)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.frameCount() != 1 {
		t.Fatalf("Update rendered with a replaced image set")
	}
	fetcher.release("c.png")
	c.Wait()
	if rec.frameCount() != 2 || c.State() != StateReady {
		t.Fatalf("frames = %d, state = %v", rec.frameCount(), c.State())
	}
}

func TestControllerLoadFailureIsReported(t *testing.T) {
	c, _, rec := newTestController(t, Options{Images: []string{"a.png", "missing.png"}})
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()

	var loadErr *LoadError
	if !errors.As(c.Err(), &loadErr) || loadErr.Source != "missing.png" {
		t.Fatalf("Err = %v, want LoadError for missing.png", c.Err())
	}
	if len(rec.errs) != 1 {
		t.Fatalf("errors reported = %d, want 1", len(rec.errs))
	}
	if c.State() != StateImagesLoading || rec.frameCount() != 0 {
		t.Fatalf("state = %v, frames = %d", c.State(), rec.frameCount())
	}
}

func TestControllerLoadTimeout(t *testing.T) {
	c, fetcher, _ := newTestController(t, Options{Images: []string{"a.png", "b.png"}, LoadTimeout: 10 * time.Millisecond})
	fetcher.gate("b.png")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()
	if !errors.Is(c.Err(), context.DeadlineExceeded) {
		t.Fatalf("Err = %v, want deadline exceeded", c.Err())
	}
}

func TestControllerInitRejectsTooFewImages(t *testing.T) {
	tests := map[string][]string{
		"none": nil,
		"one":  {"a.png"},
	}
	for name, images := range tests {
		t.Run(name, func(t *testing.T) {
			c, _, rec := newTestController(t, Options{Images: images})
			if err := c.Init(context.Background()); !errors.Is(err, ErrNotEnoughImages) {
				t.Fatalf("Init = %v, want ErrNotEnoughImages", err)
			}
			c.Wait()
			if !errors.Is(c.Err(), ErrNotEnoughImages) {
				t.Fatalf("Err = %v", c.Err())
			}
			if c.State() != StateUnconfigured {
				t.Fatalf("state = %v", c.State())
			}
			rec.mu.Lock()
			defer rec.mu.Unlock()
			if len(rec.errs) != 1 || len(rec.frames) != 0 {
				t.Fatalf("errs = %v, frames = %d", rec.errs, len(rec.frames))
			}
		})
	}
}

func TestControllerSetImagesTooFewWhileRunning(t *testing.T) {
	c, _, rec := newTestController(t, Options{Images: []string{"a.png", "b.png"}})
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()

	if err := c.SetImages(context.Background(), nil); !errors.Is(err, ErrNotEnoughImages) {
		t.Fatalf("SetImages = %v, want ErrNotEnoughImages", err)
	}
	c.Wait()
	if !errors.Is(c.Err(), ErrNotEnoughImages) {
		t.Fatalf("Err = %v", c.Err())
	}
	if c.State() != StateImagesLoading {
		t.Fatalf("state = %v", c.State())
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.errs) != 1 || len(rec.frames) != 1 {
		t.Fatalf("errs = %v, frames = %d", rec.errs, len(rec.frames))
	}
	if got := rec.states[len(rec.states)-1]; got != StateImagesLoading {
		t.Fatalf("last state = %v", got)
	}
}

func TestControllerInitRejectsInvalidSize(t *testing.T) {
	c := New(nil, Options{Width: -10, Height: 20})
	if err := c.Init(context.Background()); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("Init = %v, want ErrInvalidSize", err)
	}
	if c.State() != StateUnconfigured {
		t.Fatalf("state = %v", c.State())
	}
}

func TestControllerInitRejectsUnknownInterpolation(t *testing.T) {
	c := New(nil, Options{Interpolation: "lanczos"})
	if err := c.Init(context.Background()); err == nil {
		t.Fatal("Init accepted an unknown interpolation")
	}
}

func TestControllerUpdateRejectsOutOfBounds(t *testing.T) {
	c, _, _ := newTestController(t, Options{Width: 100, Height: 100})
	if err := c.Update([]Point{Pt(150, 10)}); !errors.Is(err, ErrPointOutOfBounds) {
		t.Fatalf("Update = %v, want ErrPointOutOfBounds", err)
	}
	if got := c.Points(); !reflect.DeepEqual(got, []Point{Pt(50, 50)}) {
		t.Fatalf("points changed to %v", got)
	}
}

func TestControllerSetImagesBeforeInit(t *testing.T) {
	c, _, rec := newTestController(t, Options{})
	if err := c.SetImages(context.Background(), []string{"c.png", "d.png"}); err != nil {
		t.Fatalf("SetImages: %v", err)
	}
	if c.State() != StateUnconfigured {
		t.Fatalf("state = %v", c.State())
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()
	if rec.frameCount() != 1 {
		t.Fatalf("frames = %d, want 1", rec.frameCount())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c, _, _ := newTestController(t, Options{Images: []string{"a.png", "b.png"}})
	if snap := c.Snapshot(); snap.Surface != nil {
		t.Fatal("surface before Init")
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	c.Wait()
	snap := c.Snapshot()
	snap.Surface.Pix[0] = 0x12
	if again := c.Snapshot(); again.Surface.Pix[0] == 0x12 {
		t.Fatal("Snapshot shares pixels with the live surface")
	}
	if snap.Version != 1 {
		t.Fatalf("version = %d", snap.Version)
	}
}
