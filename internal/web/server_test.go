package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rook-computer/interlace/internal/metrics"
)

func TestDefaultServerConfigFromEnv(t *testing.T) {
	t.Setenv(EnvListenAddr, "")
	t.Setenv(EnvDevMode, "")
	t.Setenv(EnvPublicURL, "")
	cfg, err := DefaultServerConfigFromEnv(":8080")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8080" || cfg.DevMode {
		t.Fatalf("defaults = %+v", cfg)
	}
	if got := cfg.BaseURL(); got != "http://127.0.0.1:8080" {
		t.Fatalf("BaseURL = %q", got)
	}

	t.Setenv(EnvListenAddr, "0.0.0.0:9000")
	t.Setenv(EnvDevMode, "true")
	t.Setenv(EnvPublicURL, "http://interlace.local")
	cfg, err = DefaultServerConfigFromEnv(":8080")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" || !cfg.DevMode || cfg.BaseURL() != "http://interlace.local" {
		t.Fatalf("env = %+v", cfg)
	}

	t.Setenv(EnvDevMode, "maybe")
	if _, err := DefaultServerConfigFromEnv(":8080"); err == nil {
		t.Fatal("invalid bool accepted")
	}
}

func TestDefaultMuxServesUIAndMetrics(t *testing.T) {
	m := metrics.New()
	mux := NewDefaultMux("", APIV1Deps{}, m)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>interlace</title>") {
		t.Fatalf("GET / = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "interlace_renders_total") {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
}

func TestDevCORS(t *testing.T) {
	handler := WithDevCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/state", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight = %d %v", rec.Code, rec.Header())
	}
}

func TestHTTPServerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewHTTPServer(ServerConfig{ListenAddr: "127.0.0.1:0"})
	if err := server.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + server.Addr + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "interlace") {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := server.Start(ctx); err == nil {
		t.Fatal("restart after Stop should fail")
	}
}
