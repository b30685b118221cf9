package web

import (
	"context"
	"errors"
	"image"
	"io"

	"github.com/rook-computer/interlace/internal/interlace"
	"github.com/rook-computer/interlace/internal/state"
)

// Game is the game shell the API drives. app.App implements it.
type Game interface {
	Snapshot() state.State
	SurfaceSize() (width, height int)
	Points() []interlace.Point
	Cells() []interlace.Cell

	StartGame() error
	Finish() error
	Reset()
	UpdatePoints(points []interlace.Point) error
	SetImages(sources []string) error
}

// ScreenSource exposes the last composed device screen.
type ScreenSource interface {
	Last() *image.RGBA
}

// ImageStore manages uploaded source images. Stored names are valid image
// sources for the compositor.
type ImageStore interface {
	ListImages(ctx context.Context) ([]string, error)
	UploadImage(ctx context.Context, name string, body io.Reader, contentLength int64) (string, error)
	DeleteImage(ctx context.Context, name string) error
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

type APIV1Deps struct {
	Game   Game
	Screen ScreenSource
	Images ImageStore
	Events *Hub
	Logger Logger
}

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Images == nil {
		out.Images = NoopImageStore{Err: errors.New("image store not configured")}
	}
	if out.Logger == nil {
		out.Logger = noopLogger{}
	}
	return out
}

type NoopImageStore struct{ Err error }

func (s NoopImageStore) ListImages(context.Context) ([]string, error) { return nil, s.err() }

func (s NoopImageStore) UploadImage(context.Context, string, io.Reader, int64) (string, error) {
	return "", s.err()
}

func (s NoopImageStore) DeleteImage(context.Context, string) error { return s.err() }

func (s NoopImageStore) err() error {
	if s.Err != nil {
		return s.Err
	}
	return errors.New("image store not configured")
}
