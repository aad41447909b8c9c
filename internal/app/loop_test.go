package app

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

func TestHandleActionQuit(t *testing.T) {
	app := newTestApplication(t, nil)

	if app.handleAction(statepkg.QuitAction{}) {
		t.Fatal("quit should not request a render")
	}
	if !app.shouldQuit {
		t.Fatal("expected shouldQuit")
	}
}

func TestHandleActionRecordsReducerErrors(t *testing.T) {
	app := newTestApplication(t, nil)

	if !app.handleAction(statepkg.GoToPathAction{Path: "/docs"}) {
		t.Fatal("expected a render after a rejected action")
	}
	if !errors.Is(app.state.LastError, statepkg.ErrNotConnected) {
		t.Fatalf("LastError = %v", app.state.LastError)
	}
}

func TestHandleActionIgnoresNil(t *testing.T) {
	app := newTestApplication(t, nil)
	if app.handleAction(nil) {
		t.Fatal("nil action should not request a render")
	}
}

func TestProcessActionsDrainsQueue(t *testing.T) {
	app := newTestApplication(t, nil)
	makeReady(t, app, []fsutil.Entry{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	app.actionCh <- statepkg.NavigateDownAction{}
	app.actionCh <- statepkg.NavigateDownAction{}

	if !app.processActions() {
		t.Fatal("expected processActions to report a change")
	}
	if app.state.SelectedIndex != 2 {
		t.Fatalf("SelectedIndex = %d", app.state.SelectedIndex)
	}
	if app.processActions() {
		t.Fatal("empty queue should report no change")
	}
}

func TestHandleEventKeyQuit(t *testing.T) {
	app := newTestApplication(t, nil)

	app.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	if !app.shouldQuit {
		t.Fatal("q should quit")
	}
}

func TestHandleEventResizeQueuesAction(t *testing.T) {
	app := newTestApplication(t, nil)

	if !app.handleEvent(tcell.NewEventResize(120, 40)) {
		t.Fatal("resize should request a render")
	}
	app.processActions()
	if app.state.ScreenWidth != 120 || app.state.ScreenHeight != 40 {
		t.Fatalf("size = %dx%d", app.state.ScreenWidth, app.state.ScreenHeight)
	}
}

func TestActionName(t *testing.T) {
	if got := actionName(statepkg.RefreshAction{}); got != "RefreshAction" {
		t.Fatalf("actionName = %q", got)
	}
}
