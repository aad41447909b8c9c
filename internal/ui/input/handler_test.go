package input

import (
	"fmt"
	"testing"

	"github.com/gdamore/tcell/v2"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

func expectAction(t *testing.T, actionChan chan statepkg.Action) statepkg.Action {
	t.Helper()
	select {
	case action := <-actionChan:
		return action
	default:
		t.Fatal("expected an action to be emitted")
		return nil
	}
}

func TestNormalModeKeyMapping(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		ch   rune
		want string
	}{
		{tcell.KeyUp, 0, "state.NavigateUpAction"},
		{tcell.KeyDown, 0, "state.NavigateDownAction"},
		{tcell.KeyPgUp, 0, "state.PageUpAction"},
		{tcell.KeyPgDn, 0, "state.PageDownAction"},
		{tcell.KeyHome, 0, "state.HomeAction"},
		{tcell.KeyEnd, 0, "state.EndAction"},
		{tcell.KeyEnter, 0, "state.ActivateAction"},
		{tcell.KeyRight, 0, "state.ActivateAction"},
		{tcell.KeyLeft, 0, "state.GoUpAction"},
		{tcell.KeyEscape, 0, "state.ResetQueryAction"},
		{tcell.KeyRune, 'j', "state.NavigateDownAction"},
		{tcell.KeyRune, 'k', "state.NavigateUpAction"},
		{tcell.KeyRune, '/', "state.SearchStartAction"},
		{tcell.KeyRune, 's', "state.ToggleSortAction"},
		{tcell.KeyRune, 'r', "state.RefreshAction"},
		{tcell.KeyRune, 'y', "state.YankURLAction"},
		{tcell.KeyRune, 'd', "state.DownloadAction"},
		{tcell.KeyRune, '?', "state.ToggleHelpAction"},
		{tcell.KeyCtrlZ, 0, "state.SuspendAction"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v_%q", tt.key, tt.ch), func(t *testing.T) {
			actionChan := make(chan statepkg.Action, 1)
			handler := NewInputHandler(actionChan)
			handler.SetState(&statepkg.AppState{})

			if !handler.ProcessEvent(tcell.NewEventKey(tt.key, tt.ch, tcell.ModNone)) {
				t.Fatal("handler should keep running")
			}
			if got := fmt.Sprintf("%T", expectAction(t, actionChan)); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTabCyclesCategories(t *testing.T) {
	actionChan := make(chan statepkg.Action, 2)
	handler := NewInputHandler(actionChan)
	handler.SetState(&statepkg.AppState{})

	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone))
	if a, ok := expectAction(t, actionChan).(statepkg.CycleCategoryAction); !ok || a.Delta != 1 {
		t.Fatalf("Tab produced %#v", a)
	}
	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone))
	if a, ok := expectAction(t, actionChan).(statepkg.CycleCategoryAction); !ok || a.Delta != -1 {
		t.Fatalf("Shift+Tab produced %#v", a)
	}
}

func TestDigitsSelectCategory(t *testing.T) {
	actionChan := make(chan statepkg.Action, 1)
	handler := NewInputHandler(actionChan)
	handler.SetState(&statepkg.AppState{})

	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyRune, '3', tcell.ModNone))
	a, ok := expectAction(t, actionChan).(statepkg.SelectCategoryAction)
	if !ok || a.Category != fsutil.Pictures {
		t.Fatalf("got %#v", a)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, ev := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
	} {
		actionChan := make(chan statepkg.Action, 1)
		handler := NewInputHandler(actionChan)
		handler.SetState(&statepkg.AppState{})

		if handler.ProcessEvent(ev) {
			t.Fatalf("%v should stop the handler", ev.Name())
		}
		if _, ok := expectAction(t, actionChan).(statepkg.QuitAction); !ok {
			t.Fatalf("%v did not emit QuitAction", ev.Name())
		}
	}
}

func TestSearchModeTypesEveryRune(t *testing.T) {
	actionChan := make(chan statepkg.Action, 1)
	handler := NewInputHandler(actionChan)
	handler.SetState(&statepkg.AppState{SearchActive: true})

	for _, ch := range "q/?d" {
		if !handler.ProcessEvent(tcell.NewEventKey(tcell.KeyRune, ch, tcell.ModNone)) {
			t.Fatalf("%q quit while searching", ch)
		}
		a, ok := expectAction(t, actionChan).(statepkg.SearchCharAction)
		if !ok || a.Char != ch {
			t.Fatalf("%q produced %#v", ch, a)
		}
	}
}

func TestSearchModeSpecialKeys(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		want string
	}{
		{tcell.KeyEscape, "state.SearchClearAction"},
		{tcell.KeyEnter, "state.SearchConfirmAction"},
		{tcell.KeyBackspace2, "state.SearchBackspaceAction"},
		{tcell.KeyDown, "state.NavigateDownAction"},
	}
	for _, tt := range tests {
		actionChan := make(chan statepkg.Action, 1)
		handler := NewInputHandler(actionChan)
		handler.SetState(&statepkg.AppState{SearchActive: true})

		handler.ProcessEvent(tcell.NewEventKey(tt.key, 0, tcell.ModNone))
		if got := fmt.Sprintf("%T", expectAction(t, actionChan)); got != tt.want {
			t.Fatalf("key %v: got %s, want %s", tt.key, got, tt.want)
		}
	}
}

func TestPreviewModeKeys(t *testing.T) {
	state := &statepkg.AppState{Preview: &statepkg.PreviewState{Token: 1}, ScreenHeight: 25}

	tests := []struct {
		key   tcell.Key
		ch    rune
		check func(statepkg.Action) bool
	}{
		{tcell.KeyEscape, 0, func(a statepkg.Action) bool { _, ok := a.(statepkg.ClosePreviewAction); return ok }},
		{tcell.KeyRune, 'q', func(a statepkg.Action) bool { _, ok := a.(statepkg.ClosePreviewAction); return ok }},
		{tcell.KeyDown, 0, func(a statepkg.Action) bool {
			s, ok := a.(statepkg.PreviewScrollAction)
			return ok && s.Delta == 1
		}},
		{tcell.KeyPgDn, 0, func(a statepkg.Action) bool {
			s, ok := a.(statepkg.PreviewScrollAction)
			return ok && s.Delta == state.PreviewViewportHeight()
		}},
		{tcell.KeyRune, 'y', func(a statepkg.Action) bool { _, ok := a.(statepkg.YankURLAction); return ok }},
	}
	for _, tt := range tests {
		actionChan := make(chan statepkg.Action, 1)
		handler := NewInputHandler(actionChan)
		handler.SetState(state)

		if !handler.ProcessEvent(tcell.NewEventKey(tt.key, tt.ch, tcell.ModNone)) {
			t.Fatalf("key %v %q quit from preview", tt.key, tt.ch)
		}
		if a := expectAction(t, actionChan); !tt.check(a) {
			t.Fatalf("key %v %q produced %#v", tt.key, tt.ch, a)
		}
	}
}

func TestHelpVisibleSwallowsKeys(t *testing.T) {
	actionChan := make(chan statepkg.Action, 1)
	handler := NewInputHandler(actionChan)
	handler.SetState(&statepkg.AppState{HelpVisible: true, SearchActive: true})

	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	if _, ok := expectAction(t, actionChan).(statepkg.ToggleHelpAction); !ok {
		t.Fatal("q should close help")
	}

	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	select {
	case a := <-actionChan:
		t.Fatalf("unexpected action while help is visible: %#v", a)
	default:
	}
}

func TestResizeEvent(t *testing.T) {
	actionChan := make(chan statepkg.Action, 1)
	handler := NewInputHandler(actionChan)

	handler.ProcessEvent(tcell.NewEventResize(120, 40))
	a, ok := expectAction(t, actionChan).(statepkg.ResizeAction)
	if !ok || a.Width != 120 || a.Height != 40 {
		t.Fatalf("got %#v", a)
	}
}
