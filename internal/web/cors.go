package web

import "net/http"

const (
	devCORSMethods = "GET,POST,PUT,DELETE,OPTIONS"
	devCORSHeaders = "Content-Type"
)

// WithDevCORS lets a UI served from another origin (a frontend dev server)
// call the API. Only installed when ServerConfig.DevMode is set.
func WithDevCORS(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", devCORSMethods)
			h.Set("Access-Control-Allow-Headers", devCORSHeaders)
			h.Set("Access-Control-Max-Age", "600")
		}

		// Preflight requests never reach the API.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
