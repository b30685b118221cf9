package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rook-computer/interlace/internal/assets"
)

type HTTPServer struct {
	Addr    string
	DevMode bool

	// Handler serves every request. When nil, a mux with only the UI is used.
	Handler http.Handler
	// StaticDir, when set to an existing directory, is served at "/" instead
	// of the embedded UI. Only used when Handler is nil.
	StaticDir string
	Logger    Logger

	mu     sync.Mutex
	srv    *http.Server
	ln     net.Listener
	closed bool
}

func NewHTTPServer(cfg ServerConfig) *HTTPServer {
	return &HTTPServer{Addr: cfg.ListenAddr, DevMode: cfg.DevMode}
}

func (s *HTTPServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("web server already stopped")
	}
	if s.srv != nil {
		return nil
	}
	logger := s.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	addr := s.Addr
	if addr == "" {
		addr = ":80"
	}

	handler := s.Handler
	if handler == nil {
		mux := http.NewServeMux()
		RegisterUI(mux, s.StaticDir)
		handler = mux
	}
	if s.DevMode {
		handler = WithDevCORS(handler)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.srv = nil
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.ln = ln
	s.Addr = ln.Addr().String()
	logger.Infof("web", "listening on %s", s.Addr)

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	srv := s.srv
	go func() {
		err := srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		logger.Errorf("web", "serve: %v", err)
	}()

	return nil
}

func (s *HTTPServer) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	srv := s.srv
	ln := s.ln
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// StaticUIHandler serves dir at "/" when it is an existing directory, and the
// embedded UI when dir is empty.
func StaticUIHandler(dir string) http.Handler {
	if dir == "" {
		return cleanPath(http.FileServer(http.FS(assets.WebUI)))
	}

	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}
	return cleanPath(http.FileServer(http.Dir(dir)))
}

// cleanPath normalises the request path so parent traversal never reaches
// the file server.
func cleanPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = filepath.ToSlash(filepath.Clean("/" + r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
