package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rook-computer/interlace/internal/interlace"
)

// SimFaults are injected into image loading to exercise the error paths.
type SimFaults struct {
	// LoadDelayMs delays every fetch.
	LoadDelayMs int64 `json:"loadDelayMs"`
	// FailSources lists sources whose fetch fails.
	FailSources []string `json:"failSources"`
}

type SimControl struct {
	root string

	faults struct {
		mu sync.RWMutex
		v  SimFaults
	}
}

func NewSimControl(root string) *SimControl {
	return &SimControl{root: filepath.Clean(root)}
}

func (c *SimControl) Faults() SimFaults {
	c.faults.mu.RLock()
	defer c.faults.mu.RUnlock()
	out := c.faults.v
	out.FailSources = append([]string(nil), out.FailSources...)
	return out
}

func (c *SimControl) SetFaults(v SimFaults) {
	c.faults.mu.Lock()
	c.faults.v = v
	c.faults.mu.Unlock()
}

// Reset clears faults and restores the demo images.
func (c *SimControl) Reset() error {
	c.SetFaults(SimFaults{})
	return seedImages(c.root)
}

// Fetcher wraps next with the configured faults.
func (c *SimControl) Fetcher(next interlace.Fetcher) interlace.Fetcher {
	return simFetcher{control: c, next: next}
}

type simFetcher struct {
	control *SimControl
	next    interlace.Fetcher
}

func (f simFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	faults := f.control.Faults()
	if faults.LoadDelayMs > 0 {
		timer := time.NewTimer(time.Duration(faults.LoadDelayMs) * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	for _, failing := range faults.FailSources {
		if failing == source {
			return nil, fmt.Errorf("simulated fetch failure for %s", source)
		}
	}
	return f.next.Fetch(ctx, source)
}

var demoImages = []string{"stripes.png", "rings.png", "gradient.png"}

// seedImages writes a few generated images so a game can start without uploads.
func seedImages(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	const size = 320
	painters := map[string]func(x, y int) color.RGBA{
		"stripes.png": func(x, y int) color.RGBA {
			if (x/20)%2 == 0 {
				return color.RGBA{R: 0xe0, G: 0x40, B: 0x30, A: 0xff}
			}
			return color.RGBA{R: 0xf5, G: 0xe6, B: 0xc8, A: 0xff}
		},
		"rings.png": func(x, y int) color.RGBA {
			dx, dy := x-size/2, y-size/2
			if ((dx*dx+dy*dy)/900)%2 == 0 {
				return color.RGBA{R: 0x20, G: 0x60, B: 0xc0, A: 0xff}
			}
			return color.RGBA{R: 0xd0, G: 0xe8, B: 0xff, A: 0xff}
		},
		"gradient.png": func(x, y int) color.RGBA {
			return color.RGBA{R: uint8(x * 255 / size), G: uint8(y * 255 / size), B: 0x80, A: 0xff}
		},
	}
	for _, name := range demoImages {
		paint := painters[name]
		img := image.NewRGBA(image.Rect(0, 0, size, size))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				img.SetRGBA(x, y, paint(x, y))
			}
		}
		if err := writePNG(filepath.Join(root, name), img); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func registerSimEndpoints(mux *http.ServeMux, control *SimControl) {
	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := control.Reset(); err != nil {
			writeSimError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "images": demoImages})
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, control.Faults())
			return
		case http.MethodPost:
			var patch struct {
				LoadDelayMs *int64    `json:"loadDelayMs"`
				FailSources *[]string `json:"failSources"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := control.Faults()
			if patch.LoadDelayMs != nil {
				current.LoadDelayMs = *patch.LoadDelayMs
			}
			if patch.FailSources != nil {
				current.FailSources = *patch.FailSources
			}
			control.SetFaults(current)
			writeSimJSON(w, http.StatusOK, current)
			return
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
