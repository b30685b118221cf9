package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rook-computer/interlace/internal/app"
	"github.com/rook-computer/interlace/internal/interlace"
	"github.com/rook-computer/interlace/internal/state"
)

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	data, ok := m[source]
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

type screenStub struct{ img *image.RGBA }

func (s screenStub) Last() *image.RGBA { return s.img }

type apiFixture struct {
	game    *interlace.Controller
	shell   *app.App
	handler http.Handler
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	game := interlace.New(nil, interlace.Options{Width: 40, Height: 30, Images: []string{"red.png", "blue.png"}, Interpolation: "nearest"})
	game.Fetcher = mapFetcher{
		"red.png":  solidPNG(t, color.RGBA{R: 0xff, A: 0xff}),
		"blue.png": solidPNG(t, color.RGBA{B: 0xff, A: 0xff}),
	}
	shell := app.New(state.NewStore(), nil, game)
	deps := APIV1Deps{
		Game:   shell,
		Screen: screenStub{img: image.NewRGBA(image.Rect(0, 0, 8, 8))},
		Images: FileSystemImageStore{Root: t.TempDir()},
	}
	mux := http.NewServeMux()
	RegisterAPIV1(mux, deps)
	return apiFixture{game: game, shell: shell, handler: mux}
}

func (f apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f apiFixture) start(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/game/start", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d body=%s", rec.Code, rec.Body)
	}
	f.game.Wait()
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var resp apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestStateBeforeStart(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeState(t, rec)
	if resp.Phase != "welcome" || resp.Width != 40 || resp.Height != 30 {
		t.Fatalf("state = %+v", resp)
	}
	if len(resp.Points) != 1 || resp.Points[0] != interlace.Pt(20, 15) {
		t.Fatalf("default points = %v", resp.Points)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("images = %v", resp.Images)
	}
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	f.start(t)

	resp := decodeState(t, f.do(t, http.MethodGet, "/api/v1/state", ""))
	if resp.Phase != "playing" || resp.Frame == 0 || len(resp.Cells) != 4 {
		t.Fatalf("after start: %+v", resp)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/game/start", "")
	if rec.Code != http.StatusConflict || decodeError(t, rec).Error != "game_running" {
		t.Fatalf("second start = %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/game/finish", "")
	if rec.Code != http.StatusOK || decodeState(t, rec).Phase != "result" {
		t.Fatalf("finish = %d %s", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodPost, "/api/v1/game/finish", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second finish = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/game/reset", "")
	if rec.Code != http.StatusOK || decodeState(t, rec).Phase != "welcome" {
		t.Fatalf("reset = %d %s", rec.Code, rec.Body)
	}
}

func TestPointsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/points", `{"points":[{"x":10,"y":10}]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("points before start = %d", rec.Code)
	}

	f.start(t)
	before := f.shell.Snapshot().Frame.Version
	rec = f.do(t, http.MethodPost, "/api/v1/points", `{"points":[{"x":10,"y":10},{"x":30,"y":20}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	resp := decodeState(t, rec)
	if len(resp.Cells) != 9 || resp.Frame != before+1 {
		t.Fatalf("after update: cells=%d frame=%d", len(resp.Cells), resp.Frame)
	}

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"out of bounds", `{"points":[{"x":41,"y":0}]}`, http.StatusBadRequest, "point_out_of_bounds"},
		{"malformed", `{"points":`, http.StatusBadRequest, "invalid_json"},
		{"unknown field", `{"pts":[]}`, http.StatusBadRequest, "invalid_json"},
		{"trailing data", `{"points":[]} {}`, http.StatusBadRequest, "invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/points", tt.body)
			if rec.Code != tt.status || decodeError(t, rec).Error != tt.code {
				t.Fatalf("got %d %s", rec.Code, rec.Body)
			}
		})
	}

	rec = f.do(t, http.MethodGet, "/api/v1/points", "")
	var points pointsRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil || len(points.Points) != 2 {
		t.Fatalf("GET points = %s (%v)", rec.Body, err)
	}
}

func TestEmptyPointListGivesSingleCell(t *testing.T) {
	f := newAPIFixture(t)
	f.start(t)
	rec := f.do(t, http.MethodPost, "/api/v1/points", `{"points":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if got := len(decodeState(t, rec).Cells); got != 1 {
		t.Fatalf("cells = %d, want 1", got)
	}
}

func TestImagesEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/images", `{"images":["blue.png"," red.png "]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if got := decodeState(t, rec).Images; len(got) != 2 || got[1] != "red.png" {
		t.Fatalf("images = %v", got)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/images", `{"images":["  "]}`)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error != "invalid_image" {
		t.Fatalf("blank source = %d %s", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/images", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET images = %d", rec.Code)
	}
}

func TestTooFewImagesReportError(t *testing.T) {
	f := newAPIFixture(t)
	f.start(t)

	rec := f.do(t, http.MethodPost, "/api/v1/images", `{"images":["red.png"]}`)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error != "not_enough_images" {
		t.Fatalf("one image = %d %s", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/state", "")
	if got := decodeState(t, rec); got.Phase != "error" || got.Error == "" {
		t.Fatalf("state = %+v", got)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/game/start", "")
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error != "not_enough_images" {
		t.Fatalf("start = %d %s", rec.Code, rec.Body)
	}
}

func TestSurfacePNG(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/surface.png", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("before start = %d", rec.Code)
	}

	f.start(t)
	rec = f.do(t, http.MethodGet, "/api/v1/surface.png", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	r, g, b, _ := img.At(2, 2).RGBA()
	if r>>8 != 0xff || g != 0 || b != 0 {
		t.Fatalf("top-left pixel = %v, want red", img.At(2, 2))
	}
}

func TestScreenPNG(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/screen.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	mux := http.NewServeMux()
	RegisterAPIV1(mux, APIV1Deps{})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/screen.png", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("unconfigured screen = %d", rec.Code)
	}
}

func TestUnconfiguredGame(t *testing.T) {
	mux := http.NewServeMux()
	RegisterAPIV1(mux, APIV1Deps{})
	for _, path := range []string{"/api/v1/state", "/api/v1/surface.png"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("%s = %d", path, rec.Code)
		}
	}
}

func TestUploads(t *testing.T) {
	f := newAPIFixture(t)
	data := solidPNG(t, color.RGBA{G: 0xff, A: 0xff})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/green.png", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d %s", rec.Code, rec.Body)
	}
	var uploaded uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil || uploaded.Source != "green.png" {
		t.Fatalf("upload response = %s (%v)", rec.Body, err)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/uploads", "")
	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil || len(names) != 1 || names[0] != "green.png" {
		t.Fatalf("list = %s (%v)", rec.Body, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/notes.png", strings.NewReader("not an image"))
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("bad upload = %d %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/empty.png", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusLengthRequired {
		t.Fatalf("empty upload = %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/uploads/green.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d %s", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodDelete, "/api/v1/uploads/green.png", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/state"},
		{http.MethodGet, "/api/v1/game/start"},
		{http.MethodGet, "/api/v1/game/reset"},
		{http.MethodPost, "/api/v1/surface.png"},
		{http.MethodPut, "/api/v1/points"},
	} {
		rec := f.do(t, tc.method, tc.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s = %d", tc.method, tc.path, rec.Code)
		}
	}
}
