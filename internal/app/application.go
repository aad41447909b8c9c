package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rbrowse/internal/metrics"
	"github.com/kk-code-lab/rbrowse/internal/preview"
	"github.com/kk-code-lab/rbrowse/internal/session"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
	"github.com/kk-code-lab/rbrowse/internal/transfer"
	"github.com/kk-code-lab/rbrowse/internal/ui/input"
	renderui "github.com/kk-code-lab/rbrowse/internal/ui/render"
)

// Session is the part of the connection manager the application drives.
type Session interface {
	Start(ctx context.Context) error
	RequestListing(path string) error
	Close() error
}

// Config wires an Application to its collaborators.
type Config struct {
	// Screen defaults to a new terminal screen.
	Screen tcell.Screen
	// Session configures the connection manager. OnEvent is set by the
	// application.
	Session  session.Options
	Transfer *transfer.Client
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// DownloadDir receives files saved with the download key.
	DownloadDir string
}

// Application represents the main application
type Application struct {
	screen   tcell.Screen
	state    *statepkg.AppState
	reducer  *statepkg.StateReducer
	renderer *renderui.Renderer
	input    *input.InputHandler
	actionCh chan statepkg.Action

	session     Session
	transfer    *transfer.Client
	logger      *slog.Logger
	downloadDir string

	shouldQuit     bool
	clipboardCmd   []string
	clipboardAvail bool

	lastClickRow  int
	lastClickTime time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewApplication initializes the terminal and the session. Run starts
// connecting.
func NewApplication(cfg Config) (*Application, error) {
	if cfg.Transfer == nil {
		return nil, errors.New("app: transfer client is required")
	}
	screen := cfg.Screen
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return nil, err
		}
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	// Parse mouse sequences so modified clicks don't leak as key events.
	screen.EnableMouse()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = "."
	}

	clipboardCmd, clipboardAvail := detectClipboard()

	state := statepkg.NewAppState(cfg.Transfer.Base(), cfg.Session.StartPath)
	state.ScreenWidth, state.ScreenHeight = screen.Size()
	state.ClipboardAvailable = clipboardAvail
	state.Links = cfg.Transfer
	state.PreviewLoader = preview.NewLoader(cfg.Transfer, preview.DefaultByteLimit)
	state.Metrics = cfg.Metrics

	app := &Application{
		screen:         screen,
		state:          state,
		reducer:        statepkg.NewStateReducer(),
		renderer:       renderui.NewRenderer(screen),
		actionCh:       make(chan statepkg.Action, 64),
		transfer:       cfg.Transfer,
		logger:         logger.With("component", "app"),
		downloadDir:    downloadDir,
		clipboardCmd:   clipboardCmd,
		clipboardAvail: clipboardAvail,
		lastClickRow:   -1,
		done:           make(chan struct{}),
	}
	app.input = input.NewInputHandler(app.actionCh)
	app.input.SetState(state)
	state.SetDispatch(app.dispatch)

	opts := cfg.Session
	opts.OnEvent = app.onSessionEvent
	mgr := session.New(opts)
	app.session = mgr
	state.Requester = mgr

	return app, nil
}

// dispatch queues an action for the loop. It blocks until the loop has
// room so session events keep their order, and gives up once the
// application is closed.
func (app *Application) dispatch(action statepkg.Action) {
	if action == nil {
		return
	}
	select {
	case app.actionCh <- action:
	case <-app.done:
	}
}

func (app *Application) onSessionEvent(ev session.Event) {
	app.dispatch(statepkg.ActionFromEvent(ev))
}

// Close stops the session and restores the terminal.
func (app *Application) Close() error {
	var err error
	app.closeOnce.Do(func() {
		close(app.done)
		if app.session != nil {
			err = app.session.Close()
		}
		if app.screen != nil {
			app.screen.Fini()
		}
	})
	return err
}
