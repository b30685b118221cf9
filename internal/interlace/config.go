package interlace

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultWidth       = 400
	DefaultHeight      = 400
	DefaultLoadTimeout = 30 * time.Second
)

var (
	ErrInvalidSize      = errors.New("interlace: width and height must be positive")
	ErrNotEnoughImages  = errors.New("interlace: two images are required")
	ErrImagesNotLoaded  = errors.New("interlace: images are not loaded")
	ErrPointOutOfBounds = errors.New("interlace: intersection point outside the surface")
	ErrEmptyImage       = errors.New("interlace: image has no pixels")
	ErrNotInitialized   = errors.New("interlace: controller not initialized")
)

// Options is what callers hand to New. A zero field means "use the default".
type Options struct {
	Width  int
	Height int
	Images []string

	// LoadTimeout bounds a single Load call. Zero uses DefaultLoadTimeout.
	LoadTimeout time.Duration

	// Interpolation selects the resampling kernel: "bilinear" (default),
	// "nearest" or "catmullrom".
	Interpolation string
}

// Config is the resolved, immutable configuration of a Controller.
type Config struct {
	width         int
	height        int
	images        []string
	loadTimeout   time.Duration
	interpolation string
}

// Resolve applies the per-field defaults.
func (o Options) Resolve() Config {
	cfg := Config{
		width:         DefaultWidth,
		height:        DefaultHeight,
		loadTimeout:   DefaultLoadTimeout,
		interpolation: InterpolationBilinear,
	}
	if o.Width != 0 {
		cfg.width = o.Width
	}
	if o.Height != 0 {
		cfg.height = o.Height
	}
	if o.Images != nil {
		cfg.images = cloneStrings(o.Images)
	}
	if o.LoadTimeout != 0 {
		cfg.loadTimeout = o.LoadTimeout
	}
	if o.Interpolation != "" {
		cfg.interpolation = o.Interpolation
	}
	return cfg
}

func (c Config) Width() int                 { return c.width }
func (c Config) Height() int                { return c.height }
func (c Config) Images() []string           { return cloneStrings(c.images) }
func (c Config) LoadTimeout() time.Duration { return c.loadTimeout }
func (c Config) Interpolation() string      { return c.interpolation }

// WithImages returns a copy of c with a new image list.
func (c Config) WithImages(images []string) Config {
	c.images = cloneStrings(images)
	return c
}

// Validate reports configuration errors that make rendering impossible.
// The image count is checked by Controller.Init and SetImages.
func (c Config) Validate() error {
	if c.width <= 0 || c.height <= 0 {
		return fmt.Errorf("%w (got %dx%d)", ErrInvalidSize, c.width, c.height)
	}
	if _, err := interpolator(c.interpolation); err != nil {
		return err
	}
	if c.loadTimeout < 0 {
		return fmt.Errorf("interlace: load timeout must not be negative (got %s)", c.loadTimeout)
	}
	return nil
}

func cloneStrings(input []string) []string {
	if input == nil {
		return nil
	}
	out := make([]string, len(input))
	copy(out, input)
	return out
}
