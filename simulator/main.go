package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rook-computer/interlace/internal/app"
	"github.com/rook-computer/interlace/internal/interlace"
	"github.com/rook-computer/interlace/internal/metrics"
	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/state"
	"github.com/rook-computer/interlace/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println(".env load error:", err)
	}

	defaults, err := web.DefaultServerConfigFromEnv(":8080")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address; also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode; also configurable via "+web.EnvDevMode)
	staticDir := flag.String("static-dir", "", "serve static UI from this directory (optional); when empty, embedded web UI assets are served")
	imageRoot := flag.String("image-root", "/tmp/interlace-sim/images", "simulated image directory, seeded with demo images")
	width := flag.Int("width", interlace.DefaultWidth, "surface width in pixels")
	height := flag.Int("height", interlace.DefaultHeight, "surface height in pixels")
	verbose := flag.Bool("v", false, "log to stdout")
	flag.Parse()

	var logger app.Logger = app.NoopLogger{}
	if *verbose {
		logger = app.NewFileLogger(os.Stdout)
	}

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := filepath.Clean(*imageRoot)
	control := NewSimControl(root)
	if err := control.Reset(); err != nil {
		fmt.Println("image seed error:", err)
		os.Exit(2)
	}

	game := interlace.New(nil, interlace.Options{Width: *width, Height: *height, Images: demoImages[:2]})
	game.Fetcher = control.Fetcher(interlace.NewMuxFetcher(nil, root))

	m := metrics.New()
	hub := web.NewHub(logger, m)
	hub.AllowAnyOrigin = *devMode
	go hub.Run(processCtx)

	cfg := web.ServerConfig{ListenAddr: *listenAddr, DevMode: *devMode, PublicURL: defaults.PublicURL}
	renderer := render.NewImageRenderer(logger)

	a := app.New(state.NewStore(), renderer, game)
	a.SetLogger(logger)
	a.Metrics = m
	a.Events = hub
	a.ResultURL = cfg.BaseURL() + "/api/v1/surface.png"

	mux := web.NewDefaultMux(*staticDir, web.APIV1Deps{
		Game:   a,
		Screen: renderer,
		Images: web.FileSystemImageStore{Root: root},
		Events: hub,
		Logger: logger,
	}, m)
	registerSimEndpoints(mux, control)

	server := web.NewHTTPServer(cfg)
	server.Logger = logger
	server.StaticDir = *staticDir
	server.Handler = mux
	if err := server.Start(processCtx); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}

	fmt.Println("Interlace simulator listening on", server.Addr)
	fmt.Println("Image root:", root)
	fmt.Println("API: " + cfg.BaseURL() + "/api/v1/")
	fmt.Println("Screen: " + cfg.BaseURL() + "/api/v1/screen.png")

	if err := a.Start(processCtx); err != nil && err != context.Canceled {
		fmt.Println("app error:", err)
	}
	_ = server.Stop()
}
