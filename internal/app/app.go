package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rook-computer/interlace/internal/app/screens"
	"github.com/rook-computer/interlace/internal/interlace"
	"github.com/rook-computer/interlace/internal/metrics"
	"github.com/rook-computer/interlace/internal/render"
	"github.com/rook-computer/interlace/internal/state"
	"github.com/rook-computer/interlace/internal/system"
)

var (
	ErrGameRunning = errors.New("game already running")
	ErrNotPlaying  = errors.New("no game in progress")
)

// Publisher receives shell events, typically the websocket hub.
type Publisher interface {
	Publish(kind string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

// Event kinds sent to the Publisher.
const (
	EventPhase  = "phase"
	EventFrame  = "frame"
	EventError  = "error"
	EventImages = "images"
)

type PhaseEvent struct {
	Phase string `json:"phase"`
	Err   string `json:"error,omitempty"`
}

type FrameEvent struct {
	Version    uint64            `json:"version"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Points     []interlace.Point `json:"points"`
	Cells      int               `json:"cells"`
	DurationMs float64           `json:"durationMs"`
}

type App struct {
	Store   *state.Store
	Render  render.Renderer
	Game    *interlace.Controller
	Metrics *metrics.Metrics
	Events  Publisher
	Logger  Logger

	// Console switches the active VT to graphics mode while running.
	Console bool
	// ResultURL is encoded in the result screen QR code.
	ResultURL string

	mu            sync.Mutex
	baseCtx       context.Context
	screens       map[state.Phase]render.Screen
	currentScreen render.Screen

	exitOnce atomic.Bool
	exitCh   chan error
}

func New(store *state.Store, renderer render.Renderer, game *interlace.Controller) *App {
	app := &App{
		Store:   store,
		Render:  renderer,
		Game:    game,
		Events:  noopPublisher{},
		Logger:  NoopLogger{},
		baseCtx: context.Background(),
		exitCh:  make(chan error, 1),
	}
	game.OnRender = app.handleFrame
	game.OnError = app.handleGameError
	game.OnStateChange = app.handleGameState
	store.SetImages(game.Config().Images())
	return app
}

// SetLogger sets the logger for the app and the controller it drives.
func (app *App) SetLogger(logger Logger) {
	if logger == nil {
		logger = NoopLogger{}
	}
	app.Logger = logger
	app.Game.Logger = logger
}

// Exit requests the app to stop running.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	app.exitOnce.Store(false)

	app.mu.Lock()
	app.baseCtx = ctx
	app.mu.Unlock()

	if app.Render == nil {
		app.Render = &render.NoopRenderer{}
	}
	if err := app.Render.Start(ctx); err != nil {
		app.Logger.Errorf("app", "renderer start error: %v", err)
		return err
	}
	defer app.Render.Stop()

	if app.Console {
		// Suppress the hardware cursor while the framebuffer owns the screen.
		_ = system.SetGraphicsModeWithLog(app.Logger)
		_ = system.HideCursorWithLog(app.Logger)
		defer func() { _ = system.ShowCursorWithLog(app.Logger); _ = system.RestoreTextModeWithLog(app.Logger) }()
	}

	if err := app.syncScreen(ctx); err != nil {
		return err
	}
	app.Render.RedrawWithState(app.Store.Snapshot())

	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Render.RunLoop(loopCtx, app.Store)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	cancel()
	wg.Wait()

	app.mu.Lock()
	if app.currentScreen != nil {
		_ = app.currentScreen.Stop()
	}
	app.mu.Unlock()
	return err
}

// Snapshot returns the shell state.
func (app *App) Snapshot() state.State { return app.Store.Snapshot() }

// StartGame initialises the compositor and begins loading the images. Loads
// are bound to the app lifetime rather than the caller's request.
func (app *App) StartGame() error {
	switch app.Store.Snapshot().Phase {
	case state.LOADING, state.PLAYING:
		return ErrGameRunning
	}
	app.Store.SetError("")
	app.setPhase(state.LOADING)
	if err := app.Game.Init(app.context()); err != nil {
		// The controller's OnError has usually moved the shell to ERROR already.
		if app.Store.Snapshot().Phase != state.ERROR {
			app.fail(err)
		}
		return err
	}
	app.Logger.Infof("app", "game started with %d images", len(app.Game.Config().Images()))
	return nil
}

// Finish freezes the current frame on the result screen.
func (app *App) Finish() error {
	if !app.advance(state.PLAYING, state.RESULT) {
		return ErrNotPlaying
	}
	return nil
}

// Reset returns to the welcome screen. The configured images are kept.
func (app *App) Reset() {
	app.Store.Reset()
	app.phaseChanged(state.WELCOME)
}

// UpdatePoints moves the intersection points of the running game.
func (app *App) UpdatePoints(points []interlace.Point) error {
	switch app.Store.Snapshot().Phase {
	case state.LOADING, state.PLAYING:
	default:
		return ErrNotPlaying
	}
	return app.Game.Update(points)
}

// SetImages replaces the source images. A running game reloads them.
func (app *App) SetImages(sources []string) error {
	app.Store.SetImages(sources)
	app.Events.Publish(EventImages, sources)
	return app.Game.SetImages(app.context(), sources)
}

// SurfaceSize returns the compositor surface size in pixels.
func (app *App) SurfaceSize() (int, int) {
	cfg := app.Game.Config()
	return cfg.Width(), cfg.Height()
}

// Points returns the current intersection points.
func (app *App) Points() []interlace.Point { return app.Game.Points() }

// Cells returns the partition of the current points.
func (app *App) Cells() []interlace.Cell { return app.Game.Cells() }

func (app *App) handleFrame(frame interlace.Frame) {
	switch app.Store.Snapshot().Phase {
	case state.LOADING, state.PLAYING:
	default:
		return
	}
	app.Store.UpdateFrame(state.FrameInfo{Version: frame.Version, Surface: frame.Surface})
	app.Metrics.ObserveRender(frame.Duration)
	app.Events.Publish(EventFrame, FrameEvent{
		Version:    frame.Version,
		Width:      frame.Width,
		Height:     frame.Height,
		Points:     frame.Points,
		Cells:      len(frame.Cells),
		DurationMs: float64(frame.Duration.Microseconds()) / 1000,
	})
}

func (app *App) handleGameState(s interlace.State) {
	app.Logger.Infof("app", "compositor %s", s)
	switch s {
	case interlace.StateImagesLoading:
		app.advance(state.PLAYING, state.LOADING)
	case interlace.StateReady:
		app.advance(state.LOADING, state.PLAYING)
	}
}

func (app *App) handleGameError(err error) {
	var loadErr *interlace.LoadError
	if errors.As(err, &loadErr) {
		app.Metrics.LoadFailed()
	}
	app.Store.SetError(err.Error())
	app.Events.Publish(EventError, PhaseEvent{Phase: app.Store.Snapshot().Phase.String(), Err: err.Error()})
	if app.Store.Snapshot().Phase == state.LOADING {
		app.fail(err)
	}
}

func (app *App) fail(err error) {
	app.Logger.Errorf("app", "game failed: %v", err)
	app.Store.SetError(err.Error())
	app.setPhase(state.ERROR)
}

func (app *App) setPhase(phase state.Phase) {
	app.Store.SetPhase(phase)
	app.phaseChanged(phase)
}

func (app *App) advance(from, to state.Phase) bool {
	if !app.Store.Advance(from, to) {
		return false
	}
	app.phaseChanged(to)
	return true
}

func (app *App) phaseChanged(phase state.Phase) {
	app.Logger.Infof("app", "phase %s", phase)
	app.Metrics.SetPhase(phase.String(), phaseNames)
	app.Events.Publish(EventPhase, PhaseEvent{Phase: phase.String(), Err: app.Store.Snapshot().Err})
	if err := app.syncScreen(app.context()); err != nil {
		app.Logger.Errorf("app", "screen switch failed: %v", err)
	}
}

var phaseNames = []string{
	state.WELCOME.String(),
	state.LOADING.String(),
	state.PLAYING.String(),
	state.RESULT.String(),
	state.ERROR.String(),
}

// syncScreen shows the screen for the current phase.
func (app *App) syncScreen(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.screens == nil {
		app.screens = map[state.Phase]render.Screen{
			state.WELCOME: screens.WelcomeScreen{},
			state.LOADING: screens.LoadingScreen{},
			state.PLAYING: screens.PlayingScreen{},
			state.RESULT:  screens.NewResultScreen(app.ResultURL, app.Logger),
			state.ERROR:   screens.ErrorScreen{},
		}
	}
	phase := app.Store.Snapshot().Phase
	screen, ok := app.screens[phase]
	if !ok {
		return fmt.Errorf("no screen for phase %s", phase)
	}
	if screen == app.currentScreen {
		return nil
	}
	if app.currentScreen != nil {
		_ = app.currentScreen.Stop()
	}
	app.currentScreen = screen
	if app.Render != nil {
		app.Render.SetScreen(screen)
	}
	return screen.Start(ctx)
}

func (app *App) context() context.Context {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.baseCtx
}
