package web

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rook-computer/interlace/internal/app"
	"github.com/rook-computer/interlace/internal/interlace"
)

// maxJSONBody bounds JSON request bodies; point lists are small.
const maxJSONBody = 1 << 20

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type stateResponse struct {
	Phase   string            `json:"phase"`
	Images  []string          `json:"images"`
	Frame   uint64            `json:"frame"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Points  []interlace.Point `json:"points"`
	Cells   []interlace.Cell  `json:"cells"`
	Error   string            `json:"error,omitempty"`
	Clients int               `json:"clients"`
}

type pointsRequest struct {
	Points []interlace.Point `json:"points"`
}

type imagesRequest struct {
	Images []string `json:"images"`
}

type uploadResponse struct {
	Source string `json:"source"`
}

func apiV1Router(deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) { handleState(w, r, deps) })
	mux.HandleFunc("/points", func(w http.ResponseWriter, r *http.Request) { handlePoints(w, r, deps) })
	mux.HandleFunc("/images", func(w http.ResponseWriter, r *http.Request) { handleImages(w, r, deps) })
	mux.HandleFunc("/game/start", func(w http.ResponseWriter, r *http.Request) { handleStart(w, r, deps) })
	mux.HandleFunc("/game/finish", func(w http.ResponseWriter, r *http.Request) { handleFinish(w, r, deps) })
	mux.HandleFunc("/game/reset", func(w http.ResponseWriter, r *http.Request) { handleReset(w, r, deps) })
	mux.HandleFunc("/surface.png", func(w http.ResponseWriter, r *http.Request) { handleSurface(w, r, deps) })
	mux.HandleFunc("/screen.png", func(w http.ResponseWriter, r *http.Request) { handleScreen(w, r, deps) })
	mux.HandleFunc("/uploads", func(w http.ResponseWriter, r *http.Request) { handleUploads(w, r, deps) })
	mux.HandleFunc("/uploads/", func(w http.ResponseWriter, r *http.Request) { handleUploads(w, r, deps) })
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) { handleEvents(w, r, deps) })
	return mux
}

func stateOf(deps APIV1Deps) stateResponse {
	snap := deps.Game.Snapshot()
	width, height := deps.Game.SurfaceSize()
	resp := stateResponse{
		Phase:  snap.Phase.String(),
		Images: snap.Images,
		Frame:  snap.Frame.Version,
		Width:  width,
		Height: height,
		Points: deps.Game.Points(),
		Cells:  deps.Game.Cells(),
		Error:  snap.Err,
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	if deps.Events != nil {
		resp.Clients = deps.Events.Clients()
	}
	return resp
}

// requireGame writes an error and returns false when no game is wired.
func requireGame(w http.ResponseWriter, deps APIV1Deps) bool {
	if deps.Game == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "game not configured")
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return false
	}
	return true
}

func handleState(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireMethod(w, r, http.MethodGet) || !requireGame(w, deps) {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(deps))
}

func handlePoints(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireGame(w, deps) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, pointsRequest{Points: deps.Game.Points()})
		return
	case http.MethodPost:
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req pointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Points == nil {
		req.Points = []interlace.Point{}
	}
	if err := deps.Game.UpdatePoints(req.Points); err != nil {
		switch {
		case errors.Is(err, interlace.ErrPointOutOfBounds):
			writeAPIError(w, http.StatusBadRequest, "point_out_of_bounds", err.Error())
		case errors.Is(err, app.ErrNotPlaying):
			writeAPIError(w, http.StatusConflict, "not_playing", err.Error())
		default:
			deps.Logger.Errorf("api", "update points: %v", err)
			writeAPIError(w, http.StatusInternalServerError, "render_failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, stateOf(deps))
}

func handleImages(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireMethod(w, r, http.MethodPost) || !requireGame(w, deps) {
		return
	}
	var req imagesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sources := make([]string, 0, len(req.Images))
	for _, source := range req.Images {
		source = strings.TrimSpace(source)
		if source == "" {
			writeAPIError(w, http.StatusBadRequest, "invalid_image", "image sources must not be empty")
			return
		}
		sources = append(sources, source)
	}
	if err := deps.Game.SetImages(sources); err != nil {
		if errors.Is(err, interlace.ErrNotEnoughImages) {
			writeAPIError(w, http.StatusBadRequest, "not_enough_images", err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "set_images_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, stateOf(deps))
}

func handleStart(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireMethod(w, r, http.MethodPost) || !requireGame(w, deps) {
		return
	}
	if err := deps.Game.StartGame(); err != nil {
		switch {
		case errors.Is(err, app.ErrGameRunning):
			writeAPIError(w, http.StatusConflict, "game_running", err.Error())
			return
		case errors.Is(err, interlace.ErrNotEnoughImages):
			writeAPIError(w, http.StatusBadRequest, "not_enough_images", err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "start_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, stateOf(deps))
}

func handleFinish(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireMethod(w, r, http.MethodPost) || !requireGame(w, deps) {
		return
	}
	if err := deps.Game.Finish(); err != nil {
		writeAPIError(w, http.StatusConflict, "not_playing", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stateOf(deps))
}

func handleReset(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireMethod(w, r, http.MethodPost) || !requireGame(w, deps) {
		return
	}
	deps.Game.Reset()
	writeJSON(w, http.StatusOK, stateOf(deps))
}

func handleSurface(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireMethod(w, r, http.MethodGet) || !requireGame(w, deps) {
		return
	}
	surface := deps.Game.Snapshot().Frame.Surface
	if surface == nil {
		writeAPIError(w, http.StatusNotFound, "no_frame", "nothing rendered yet")
		return
	}
	writePNG(w, surface, deps.Logger)
}

func handleScreen(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if deps.Screen == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "screen preview not configured")
		return
	}
	screen := deps.Screen.Last()
	if screen == nil {
		writeAPIError(w, http.StatusNotFound, "no_screen", "no screen drawn yet")
		return
	}
	writePNG(w, screen, deps.Logger)
}

// handleUploads serves:
//
//	GET    /uploads         -> stored image names
//	POST   /uploads/{name}  -> store the body as name (Content-Length required)
//	DELETE /uploads/{name}  -> remove name
func handleUploads(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/uploads"), "/")
	if name == "" {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		names, err := deps.Images.ListImages(r.Context())
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, "list_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, names)
		return
	}
	if strings.Contains(name, "/") || name == "." || name == ".." {
		writeAPIError(w, http.StatusBadRequest, "invalid_name", "invalid image name")
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		if err := requireContentLength(r); err != nil {
			writeAPIError(w, http.StatusLengthRequired, "length_required", err.Error())
			return
		}
		source, err := deps.Images.UploadImage(r.Context(), name, r.Body, r.ContentLength)
		if err != nil {
			var lengthErr *apiLengthError
			switch {
			case errors.Is(err, errUnsupportedImage):
				writeAPIError(w, http.StatusUnsupportedMediaType, "unsupported_image", err.Error())
			case errors.As(err, &lengthErr):
				writeAPIError(w, http.StatusBadRequest, "length_mismatch", err.Error())
			default:
				writeAPIError(w, http.StatusInternalServerError, "upload_failed", err.Error())
			}
			return
		}
		deps.Logger.Infof("api", "stored upload %s", source)
		writeJSON(w, http.StatusCreated, uploadResponse{Source: source})
	case http.MethodDelete:
		if err := deps.Images.DeleteImage(r.Context(), name); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				writeAPIError(w, http.StatusNotFound, "image_not_found", "image not found")
				return
			}
			writeAPIError(w, http.StatusInternalServerError, "delete_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func handleEvents(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Events == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "event stream not configured")
		return
	}
	deps.Events.ServeWS(w, r)
}

func requireContentLength(r *http.Request) error {
	// Reject chunked/unknown length so uploads are never buffered.
	if r.ContentLength <= 0 {
		return errLengthRequired
	}
	return nil
}

var errLengthRequired = errors.New("Content-Length header is required")

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", "request body must be a single JSON object")
		return false
	}
	return true
}

func writePNG(w http.ResponseWriter, img image.Image, logger Logger) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, img); err != nil {
		logger.Errorf("api", "png encode: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
