package app

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"

	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
	renderui "github.com/kk-code-lab/rbrowse/internal/ui/render"
)

const doubleClickThreshold = 300 * time.Millisecond

// Run starts the session and drives the event loop until the user quits or
// ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	defer app.screen.Fini()

	if err := app.session.Start(ctx); err != nil {
		return err
	}

	app.renderer.Render(app.state)
	renderPending := false

	eventChan := make(chan tcell.Event)
	go func() {
		for {
			ev := app.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-app.done:
				return
			}
		}
	}()

	var sigContCh chan os.Signal
	if sigs := contSignals(); len(sigs) > 0 {
		sigContCh = make(chan os.Signal, 1)
		signal.Notify(sigContCh, sigs...)
		defer signal.Stop(sigContCh)
	}

	const animationInterval = 50 * time.Millisecond
	var animationTimer *time.Timer
	var animationCh <-chan time.Time

	startAnimation := func() {
		if animationTimer == nil {
			animationTimer = time.NewTimer(animationInterval)
		} else {
			if !animationTimer.Stop() {
				select {
				case <-animationTimer.C:
				default:
				}
			}
			animationTimer.Reset(animationInterval)
		}
		animationCh = animationTimer.C
	}

	stopAnimation := func() {
		if animationTimer == nil {
			return
		}
		if !animationTimer.Stop() {
			select {
			case <-animationTimer.C:
			default:
			}
		}
		animationCh = nil
	}

	for !app.shouldQuit {
		if renderPending {
			app.renderer.Render(app.state)
			renderPending = false
		}

		if app.shouldAnimate() {
			startAnimation()
		} else {
			stopAnimation()
		}

		select {
		case ev := <-eventChan:
			if app.handleEvent(ev) {
				renderPending = true
			}
		case <-animationCh:
			renderPending = true
		case action := <-app.actionCh:
			if app.handleAction(action) {
				renderPending = true
			}
		case <-sigContCh:
			if app.resumeAfterStop() {
				renderPending = true
			}
		case <-ctx.Done():
			app.shouldQuit = true
		}

		if app.processActions() {
			renderPending = true
		}
	}

	stopAnimation()
	return nil
}

func (app *Application) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if !app.input.ProcessEvent(ev) {
			app.shouldQuit = true
		}
	case *tcell.EventResize:
		app.screen.Sync()
		app.input.ProcessEvent(ev)
	case *tcell.EventMouse:
		app.handleMouse(ev)
	case *tcell.EventInterrupt:
		return true
	default:
		return false
	}
	return true
}

// handleMouse maps primary clicks and the wheel onto listing actions.
func (app *Application) handleMouse(ev *tcell.EventMouse) {
	state := app.state
	if state == nil || state.HelpVisible {
		return
	}
	buttons := ev.Buttons()
	x, y := ev.Position()

	if buttons&(tcell.WheelUp|tcell.WheelDown) != 0 {
		delta := 1
		if buttons&tcell.WheelUp != 0 {
			delta = -1
		}
		if state.Preview != nil {
			app.reduce(statepkg.PreviewScrollAction{Delta: 3 * delta})
		} else if delta < 0 {
			app.reduce(statepkg.NavigateUpAction{})
		} else {
			app.reduce(statepkg.NavigateDownAction{})
		}
		return
	}
	if buttons&tcell.Button1 == 0 {
		return
	}

	if sidebar := renderui.SidebarWidth(state.ScreenWidth); sidebar > 0 && x < sidebar {
		if cat, ok := renderui.SidebarCategoryAt(y); ok {
			app.reduce(statepkg.SelectCategoryAction{Category: cat})
		}
		return
	}
	if x < renderui.MainPanelStart(state.ScreenWidth) || state.Preview != nil || !state.Ready() {
		return
	}
	if y >= state.ListStartY()+state.ListViewportHeight() {
		return
	}

	row := state.RowAtScreenY(y)
	if row < 0 {
		return
	}
	doubleClick := app.lastClickRow == row && time.Since(app.lastClickTime) <= doubleClickThreshold
	app.lastClickRow = row
	app.lastClickTime = time.Now()

	app.reduce(statepkg.SelectIndexAction{Index: row})
	if doubleClick {
		app.lastClickRow = -1
		app.reduce(statepkg.ActivateAction{})
	}
}

func (app *Application) processActions() bool {
	changed := false
	for {
		select {
		case action := <-app.actionCh:
			if app.handleAction(action) {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (app *Application) shouldAnimate() bool {
	if app.state == nil || app.state.LastYankTime.IsZero() {
		return false
	}
	return time.Since(app.state.LastYankTime) < 100*time.Millisecond
}

func (app *Application) handleAction(action statepkg.Action) bool {
	if action == nil {
		return false
	}

	switch action.(type) {
	case statepkg.QuitAction:
		app.shouldQuit = true
		return false
	case statepkg.SuspendAction:
		app.suspendToShell()
		app.resumeAfterStop()
		return true
	case statepkg.YankURLAction:
		return app.handleYank()
	case statepkg.DownloadAction:
		return app.handleDownload()
	}

	app.reduce(action)
	return true
}

func (app *Application) reduce(action statepkg.Action) {
	if _, err := app.reducer.Reduce(app.state, action); err != nil {
		app.logger.Debug("action rejected", "action", actionName(action), "error", err)
		app.state.LastError = err
	}
}
