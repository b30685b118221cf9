package interlace

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	// Decoders available to image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is a decoded source bitmap. Values published by a Loader are never
// mutated afterwards.
type Image struct {
	Source        string
	Format        string
	Bitmap        image.Image
	NaturalWidth  int
	NaturalHeight int

	loaded bool
	err    error
}

// NewImage wraps an already decoded bitmap as a loaded Image.
func NewImage(source string, bitmap image.Image) *Image {
	bounds := bitmap.Bounds()
	return &Image{
		Source:        source,
		Bitmap:        bitmap,
		NaturalWidth:  bounds.Dx(),
		NaturalHeight: bounds.Dy(),
		loaded:        true,
	}
}

func (img *Image) Loaded() bool { return img != nil && img.loaded }

// Err returns the load failure, if any.
func (img *Image) Err() error {
	if img == nil {
		return nil
	}
	return img.err
}

// LoadError reports an image source that could not be fetched or decoded.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("interlace: load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader loads a set of images concurrently and reports once all of them are
// ready. Every Load starts a new generation; completions from older
// generations are ignored.
type Loader struct {
	Fetcher Fetcher
	Timeout time.Duration

	// OnReady fires once per generation, when every image is loaded.
	OnReady func(generation uint64)
	// OnError fires for each image of the current generation that fails.
	OnError func(generation uint64, err error)

	mu         sync.Mutex
	generation uint64
	images     []*Image
	pending    int
	ready      bool
	cancel     context.CancelFunc

	wg sync.WaitGroup
}

func NewLoader(fetcher Fetcher, timeout time.Duration) *Loader {
	return &Loader{Fetcher: fetcher, Timeout: timeout}
}

// Load replaces the tracked image set and starts fetching sources. Any loads
// still running for the previous set are cancelled. It returns the new
// generation.
func (l *Loader) Load(ctx context.Context, sources []string) uint64 {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.generation++
	generation := l.generation
	l.images = make([]*Image, len(sources))
	for i, source := range sources {
		l.images[i] = &Image{Source: source}
	}
	l.pending = len(sources)
	l.ready = false

	var (
		loadCtx context.Context
		cancel  context.CancelFunc
	)
	if l.Timeout > 0 {
		loadCtx, cancel = context.WithTimeout(ctx, l.Timeout)
	} else {
		loadCtx, cancel = context.WithCancel(ctx)
	}
	if len(sources) == 0 {
		cancel()
	} else {
		l.cancel = cancel
	}
	fetcher := l.Fetcher
	l.mu.Unlock()

	for i, source := range sources {
		l.wg.Add(1)
		go func(index int, source string) {
			defer l.wg.Done()
			img, err := decodeSource(loadCtx, fetcher, source)
			l.complete(generation, index, source, img, err)
		}(i, source)
	}
	return generation
}

func decodeSource(ctx context.Context, fetcher Fetcher, source string) (*Image, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}
	rc, err := fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	bitmap, format, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := NewImage(source, bitmap)
	img.Format = format
	return img, nil
}

func (l *Loader) complete(generation uint64, index int, source string, img *Image, err error) {
	l.mu.Lock()
	if generation != l.generation {
		l.mu.Unlock()
		return
	}
	l.pending--
	if l.pending == 0 && l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}

	if err != nil {
		loadErr := &LoadError{Source: source, Err: err}
		l.images[index] = &Image{Source: source, err: loadErr}
		onError := l.OnError
		l.mu.Unlock()
		if onError != nil {
			onError(generation, loadErr)
		}
		return
	}

	l.images[index] = img
	fire := !l.ready && allLoaded(l.images)
	if fire {
		l.ready = true
	}
	onReady := l.OnReady
	l.mu.Unlock()

	if fire && onReady != nil {
		onReady(generation)
	}
}

func allLoaded(images []*Image) bool {
	for _, img := range images {
		if !img.Loaded() {
			return false
		}
	}
	return len(images) > 0
}

// Ready returns the image set of generation if it is still current and fully
// loaded.
func (l *Loader) Ready(generation uint64) ([]*Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if generation != l.generation || !l.ready {
		return nil, false
	}
	return cloneImages(l.images), true
}

// Images returns the currently tracked images, loaded or not.
func (l *Loader) Images() []*Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneImages(l.images)
}

func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Wait blocks until every fetch started so far has completed.
func (l *Loader) Wait() { l.wg.Wait() }

func cloneImages(images []*Image) []*Image {
	out := make([]*Image, len(images))
	copy(out, images)
	return out
}
