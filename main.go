package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rook-computer/interlace/internal/app"
	"github.com/rook-computer/interlace/internal/interlace"
	"github.com/rook-computer/interlace/internal/metrics"
	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/state"
	"github.com/rook-computer/interlace/internal/system"
	"github.com/rook-computer/interlace/internal/web"
)

func main() {
	// A missing .env is the normal case on the device.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println(".env load error:", err)
	}

	defaults, err := web.DefaultServerConfigFromEnv(":80")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	// Flags
	debug := flag.Bool("debug", false, "enable debug logging to ./interlace-debug.log")
	stdioLog := flag.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via INTERLACE_STDIO_LOG")
	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address; also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode; also configurable via "+web.EnvDevMode)
	publicURL := flag.String("public-url", defaults.PublicURL, "externally reachable base URL; also configurable via "+web.EnvPublicURL)
	staticDir := flag.String("static-dir", "", "serve static UI from this directory (optional); when empty, embedded web UI assets are served")
	device := flag.String("fb", render.DefaultFramebuffer, "framebuffer device")
	imageRoot := flag.String("image-root", "/var/lib/interlace/images", "directory holding uploaded images; relative image sources resolve against it")
	images := flag.String("images", "", "comma separated image sources (paths under -image-root or http(s) URLs)")
	width := flag.Int("width", interlace.DefaultWidth, "surface width in pixels")
	height := flag.Int("height", interlace.DefaultHeight, "surface height in pixels")
	loadTimeout := flag.Duration("load-timeout", interlace.DefaultLoadTimeout, "time allowed to load one image")
	interpolation := flag.String("interpolation", interlace.InterpolationBilinear, "resampling kernel: bilinear | nearest | catmullrom")
	flag.Parse()

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	logPath := *stdioLog
	if logPath == "" {
		logPath = os.Getenv("INTERLACE_STDIO_LOG")
	}
	if logPath != "" {
		if err := redirectStdIO(logPath); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	// Local file logger when debug enabled
	var logger app.Logger = app.NoopLogger{}
	if *debug {
		f, err := os.OpenFile("./interlace-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			defer f.Close()
			logger = app.NewFileLogger(f)
			logger.Infof("main", "debug logging enabled")
		} else {
			fmt.Println("debug log open error:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(*imageRoot, 0o755); err != nil {
		fmt.Println("image root error:", err)
		os.Exit(1)
	}

	game := interlace.New(nil, interlace.Options{
		Width:         *width,
		Height:        *height,
		Images:        splitList(*images),
		LoadTimeout:   *loadTimeout,
		Interpolation: *interpolation,
	})
	game.Fetcher = interlace.NewMuxFetcher(nil, *imageRoot)

	m := metrics.New()
	hub := web.NewHub(logger, m)
	hub.AllowAnyOrigin = *devMode
	go hub.Run(ctx)

	cfg := web.ServerConfig{ListenAddr: *listenAddr, DevMode: *devMode, PublicURL: *publicURL}

	renderer := render.NewFBRenderer(logger)
	renderer.Device = *device

	a := app.New(state.NewStore(), renderer, game)
	a.SetLogger(logger)
	a.Metrics = m
	a.Events = hub
	a.Console = true
	a.ResultURL = cfg.BaseURL() + "/api/v1/surface.png"

	server := web.NewHTTPServer(cfg)
	server.Logger = logger
	server.StaticDir = *staticDir
	server.Handler = web.NewDefaultMux(server.StaticDir, web.APIV1Deps{
		Game:   a,
		Images: web.FileSystemImageStore{Root: *imageRoot},
		Events: hub,
		Logger: logger,
	}, m)
	if err := server.Start(ctx); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}
	defer server.Stop()

	go system.WatchKeys(ctx, logger, system.KeyBindings{
		system.KeyF2: func() { logIfErr(logger, "start", a.StartGame()) },
		system.KeyF3: func() { logIfErr(logger, "finish", a.Finish()) },
		system.KeyF4: func() { a.Exit(nil) },
		system.KeyF5: a.Reset,
	})

	fmt.Println("Interlace listening on", server.Addr)
	if err := a.Start(ctx); err != nil && err != context.Canceled {
		fmt.Println("app error:", err)
	}

	// Let in-flight loads observe the cancellation before the process exits.
	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() { game.Wait(); close(done) }()
	select {
	case <-done:
	case <-waitCtx.Done():
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func logIfErr(logger app.Logger, action string, err error) {
	if err != nil {
		logger.Errorf("keys", "%s: %v", action, err)
	}
}
