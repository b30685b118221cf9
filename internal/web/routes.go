package web

import (
	"net/http"

	"github.com/rook-computer/interlace/internal/metrics"
)

// RegisterAPIV1 registers the public API routes under /api/v1/.
func RegisterAPIV1(mux *http.ServeMux, deps APIV1Deps) {
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", apiV1Router(deps)))
}

// RegisterMetrics serves the Prometheus registry at /metrics.
func RegisterMetrics(mux *http.ServeMux, m *metrics.Metrics) {
	if m == nil {
		return
	}
	mux.Handle("/metrics", m.Handler())
}

// RegisterUI serves either embedded UI assets or a directory.
func RegisterUI(mux *http.ServeMux, staticDir string) {
	mux.Handle("/", StaticUIHandler(staticDir))
}

// NewDefaultMux builds the standard mux used by both the device and simulator:
// - /api/v1/* for the API
// - /metrics for Prometheus
// - / for the web UI
func NewDefaultMux(staticDir string, deps APIV1Deps, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterAPIV1(mux, deps)
	RegisterMetrics(mux, m)
	RegisterUI(mux, staticDir)
	return mux
}
