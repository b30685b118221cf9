package web

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvListenAddr = "INTERLACE_LISTEN"
	EnvDevMode    = "INTERLACE_DEV"
	EnvPublicURL  = "INTERLACE_PUBLIC_URL"
)

// ServerConfig contains settings for running the HTTP server.
//
// The intended defaults differ per binary:
// - real device: :80
// - simulator:   :8080
type ServerConfig struct {
	ListenAddr string
	DevMode    bool
	// PublicURL is the externally reachable base URL, used for links shown
	// on the device screen. Empty means derive it from ListenAddr.
	PublicURL string
}

func DefaultServerConfigFromEnv(defaultListenAddr string) (ServerConfig, error) {
	listenAddr := os.Getenv(EnvListenAddr)
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	devMode := false
	if raw := os.Getenv(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		devMode = parsed
	}

	return ServerConfig{ListenAddr: listenAddr, DevMode: devMode, PublicURL: os.Getenv(EnvPublicURL)}, nil
}

// BaseURL returns PublicURL or a best-effort http URL for ListenAddr.
func (c ServerConfig) BaseURL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	addr := c.ListenAddr
	switch {
	case addr == "":
		addr = "127.0.0.1:80"
	case addr[0] == ':':
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}
