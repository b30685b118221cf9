package interlace

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"
	"testing"
)

var (
	red    = color.RGBA{R: 0xFF, A: 0xFF}
	blue   = color.RGBA{B: 0xFF, A: 0xFF}
	green  = color.RGBA{G: 0xFF, A: 0xFF}
	yellow = color.RGBA{R: 0xFF, G: 0xFF, A: 0xFF}
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// memFetcher serves in-memory files. Sources with a gate block until the gate
// is closed or the context ends.
type memFetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	gates map[string]chan struct{}
	calls map[string]int
}

func newMemFetcher() *memFetcher {
	return &memFetcher{files: map[string][]byte{}, gates: map[string]chan struct{}{}, calls: map[string]int{}}
}

func (f *memFetcher) add(source string, data []byte) {
	f.mu.Lock()
	f.files[source] = data
	f.mu.Unlock()
}

func (f *memFetcher) gate(source string) {
	f.mu.Lock()
	f.gates[source] = make(chan struct{})
	f.mu.Unlock()
}

func (f *memFetcher) release(source string) {
	f.mu.Lock()
	gate := f.gates[source]
	f.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (f *memFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	f.mu.Lock()
	data, ok := f.files[source]
	gate := f.gates[source]
	f.calls[source]++
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, fmt.Errorf("%s: not found", source)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}
