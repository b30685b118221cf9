package interlace

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"
)

type State int

const (
	StateUnconfigured State = iota
	StateImagesLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateImagesLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type NoopLogger struct{}

func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}

// Mount is the display target the drawing surface is attached to.
type Mount interface {
	Attach(surface *image.RGBA)
}

// MountFunc adapts a function to Mount.
type MountFunc func(surface *image.RGBA)

func (f MountFunc) Attach(surface *image.RGBA) { f(surface) }

// Frame is the result of one completed render.
type Frame struct {
	Version  uint64
	Width    int
	Height   int
	Points   []Point
	Cells    []Cell
	Surface  *image.RGBA
	Duration time.Duration
}

// Controller owns the drawing surface, the intersection points and the
// source images, and re-renders whenever one of them changes.
//
// All methods are safe for concurrent use. Callbacks run on the goroutine
// that caused them, after the controller lock is released.
type Controller struct {
	Logger  Logger
	Fetcher Fetcher

	OnRender      func(Frame)
	OnError       func(error)
	OnStateChange func(State)

	mu         sync.Mutex
	mount      Mount
	config     Config
	state      State
	surface    *image.RGBA
	points     []Point
	cells      []Cell
	images     []*Image
	generation uint64
	version    uint64
	err        error
	loader     *Loader
	renderer   *Renderer
}

// New creates an unconfigured controller. The intersection points start at
// the centre of the surface.
func New(mount Mount, opts Options) *Controller {
	cfg := opts.Resolve()
	c := &Controller{
		Logger:  NoopLogger{},
		Fetcher: NewMuxFetcher(http.DefaultClient, ""),
		mount:   mount,
		config:  cfg,
		state:   StateUnconfigured,
		points:  []Point{{X: SurfacePx(cfg.width) / 2, Y: SurfacePx(cfg.height) / 2}},
	}
	c.loader = &Loader{
		OnReady: c.handleReady,
		OnError: c.handleLoadError,
	}
	return c
}

// Init validates the configuration, creates the surface, attaches it to the
// mount and starts loading the configured images. ctx bounds the loads.
// Fewer than two images fail here, before anything is loaded.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	err := c.config.Validate()
	if err == nil {
		err = checkImageCount(c.config.images)
	}
	if err != nil {
		c.err = err
		c.mu.Unlock()
		c.logger().Errorf("interlace", "init failed: %v", err)
		c.emit(nil, err, nil)
		return err
	}
	interp, _ := interpolator(c.config.interpolation)
	c.renderer = &Renderer{Interpolator: interp, Squash: NewSquashCorrector()}
	c.surface = image.NewRGBA(image.Rect(0, 0, c.config.width, c.config.height))
	c.cells = Partition(c.points, SurfacePx(c.config.width), SurfacePx(c.config.height))
	c.err = nil
	c.state = StateImagesLoading
	surface := c.surface
	mount := c.mount
	c.mu.Unlock()

	c.logger().Infof("interlace", "surface %dx%d created", surface.Bounds().Dx(), surface.Bounds().Dy())
	if mount != nil {
		mount.Attach(surface)
	}
	state := StateImagesLoading
	c.emit(nil, nil, &state)

	c.mu.Lock()
	c.startLoadLocked(ctx)
	c.mu.Unlock()
	return nil
}

// SetImages replaces the source images and reloads them. Nothing is drawn
// until the new set has loaded. Once initialised, fewer than two sources
// drop the running loads and fail with ErrNotEnoughImages.
func (c *Controller) SetImages(ctx context.Context, sources []string) error {
	c.mu.Lock()
	c.config = c.config.WithImages(sources)
	if c.state == StateUnconfigured {
		c.mu.Unlock()
		return nil
	}
	c.images = nil
	previous := c.state
	err := checkImageCount(c.config.images)
	if err != nil {
		c.state = StateImagesLoading
		c.generation = c.loader.Load(ctx, nil)
		c.err = err
	} else {
		c.startLoadLocked(ctx)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger().Errorf("interlace", "set images: %v", err)
	}
	var changed *State
	if previous != StateImagesLoading {
		state := StateImagesLoading
		changed = &state
	}
	c.emit(nil, err, changed)
	return err
}

func checkImageCount(images []string) error {
	if len(images) < 2 {
		return fmt.Errorf("%w (got %d)", ErrNotEnoughImages, len(images))
	}
	return nil
}

// Update replaces the intersection points and re-renders synchronously when
// the images are ready. Before that the points are kept for the first render.
func (c *Controller) Update(points []Point) error {
	c.mu.Lock()
	width, height := SurfacePx(c.config.width), SurfacePx(c.config.height)
	if err := ValidatePoints(points, width, height); err != nil {
		c.mu.Unlock()
		return err
	}
	c.points = clonePoints(points)
	c.cells = Partition(c.points, width, height)
	if c.state != StateReady {
		c.mu.Unlock()
		return nil
	}
	frame, err := c.renderLocked()
	c.mu.Unlock()

	c.emit(frame, err, nil)
	return err
}

func (c *Controller) startLoadLocked(ctx context.Context) {
	c.loader.Fetcher = c.Fetcher
	c.loader.Timeout = c.config.loadTimeout
	c.state = StateImagesLoading
	c.generation = c.loader.Load(ctx, c.config.images)
	c.logger().Infof("interlace", "loading %d images (generation %d)", len(c.config.images), c.generation)
}

func (c *Controller) handleReady(generation uint64) {
	images, ok := c.loader.Ready(generation)
	if !ok {
		return
	}

	c.mu.Lock()
	if generation != c.generation || c.surface == nil {
		c.mu.Unlock()
		return
	}
	c.images = images
	c.renderer.Squash.Forget(images)
	before := c.state
	frame, err := c.renderLocked()
	after := c.state
	c.mu.Unlock()

	c.logger().Infof("interlace", "images ready (generation %d)", generation)
	var changed *State
	if after != before {
		changed = &after
	}
	c.emit(frame, err, changed)
}

func (c *Controller) handleLoadError(generation uint64, err error) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.mu.Unlock()

	c.logger().Errorf("interlace", "%v", err)
	c.emit(nil, err, nil)
}

// renderLocked partitions and draws the current points. Callers hold c.mu.
func (c *Controller) renderLocked() (*Frame, error) {
	start := time.Now()
	width, height := SurfacePx(c.config.width), SurfacePx(c.config.height)
	c.cells = Partition(c.points, width, height)
	if err := c.renderer.Render(c.surface, c.cells, c.images); err != nil {
		c.err = err
		c.logger().Errorf("interlace", "render failed: %v", err)
		return nil, err
	}
	c.err = nil
	c.state = StateReady
	c.version++

	frame := &Frame{
		Version:  c.version,
		Width:    c.config.width,
		Height:   c.config.height,
		Points:   clonePoints(c.points),
		Cells:    cloneCells(c.cells),
		Duration: time.Since(start),
	}
	if c.OnRender != nil {
		frame.Surface = cloneRGBA(c.surface)
	}
	return frame, nil
}

func (c *Controller) emit(frame *Frame, err error, state *State) {
	if state != nil && c.OnStateChange != nil {
		c.OnStateChange(*state)
	}
	if err != nil && c.OnError != nil {
		c.OnError(err)
	}
	if frame != nil && c.OnRender != nil {
		c.OnRender(*frame)
	}
}

func (c *Controller) logger() Logger {
	if c.Logger == nil {
		return NoopLogger{}
	}
	return c.Logger
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

func (c *Controller) Points() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clonePoints(c.points)
}

func (c *Controller) Cells() []Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneCells(c.cells)
}

// Images returns the image set the last render used.
func (c *Controller) Images() []*Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneImages(c.images)
}

// Err returns the last load or render failure. A successful render clears it.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Snapshot copies the current surface. Surface is nil before Init.
func (c *Controller) Snapshot() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame := Frame{
		Version: c.version,
		Width:   c.config.width,
		Height:  c.config.height,
		Points:  clonePoints(c.points),
		Cells:   cloneCells(c.cells),
	}
	if c.surface != nil {
		frame.Surface = cloneRGBA(c.surface)
	}
	return frame
}

// Wait blocks until all image loads started so far have been handled.
func (c *Controller) Wait() { c.loader.Wait() }

func cloneRGBA(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	pix := make([]uint8, len(src.Pix))
	copy(pix, src.Pix)
	return &image.RGBA{Pix: pix, Stride: src.Stride, Rect: src.Rect}
}
