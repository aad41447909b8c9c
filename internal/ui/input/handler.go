package input

import (
	"github.com/gdamore/tcell/v2"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

// InputHandler converts tcell events to Actions
type InputHandler struct {
	actionChan chan statepkg.Action
	state      *statepkg.AppState // Reference to current state for mode checking
}

// NewInputHandler creates a new input handler
func NewInputHandler(actionChan chan statepkg.Action) *InputHandler {
	return &InputHandler{
		actionChan: actionChan,
	}
}

// SetState sets the state reference for mode checking
func (ih *InputHandler) SetState(state *statepkg.AppState) {
	ih.state = state
}

// ProcessEvent converts a tcell event into an Action. It returns false when
// the event asks the application to quit.
func (ih *InputHandler) ProcessEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return ih.processKeyEvent(ev)
	case *tcell.EventResize:
		w, h := ev.Size()
		ih.actionChan <- statepkg.ResizeAction{Width: w, Height: h}
		return true
	default:
		return true
	}
}

// categoryKeys maps digit keys to sidebar categories; 0 is all files.
var categoryKeys = map[rune]fsutil.Category{
	'0': fsutil.AllFiles,
	'1': fsutil.Directories,
	'2': fsutil.Documents,
	'3': fsutil.Pictures,
	'4': fsutil.Videos,
	'5': fsutil.Music,
	'6': fsutil.Others,
}

// processKeyEvent handles keyboard input
func (ih *InputHandler) processKeyEvent(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		ih.actionChan <- statepkg.QuitAction{}
		return false
	}

	switch {
	case ih.state != nil && ih.state.HelpVisible:
		return ih.processHelpKey(ev)
	case ih.state != nil && ih.state.SearchActive:
		return ih.processSearchKey(ev)
	case ih.state != nil && ih.state.Preview != nil:
		return ih.processPreviewKey(ev)
	default:
		return ih.processNormalKey(ev)
	}
}

func (ih *InputHandler) processHelpKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		ih.actionChan <- statepkg.ToggleHelpAction{}
	case tcell.KeyRune:
		switch ev.Rune() {
		case '?', 'q', 'Q':
			ih.actionChan <- statepkg.ToggleHelpAction{}
		}
	}
	return true
}

func (ih *InputHandler) processSearchKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		ih.actionChan <- statepkg.SearchClearAction{}
	case tcell.KeyEnter:
		ih.actionChan <- statepkg.SearchConfirmAction{}
	case tcell.KeyBackspace, tcell.KeyBackspace2, tcell.KeyDelete:
		ih.actionChan <- statepkg.SearchBackspaceAction{}
	case tcell.KeyUp:
		ih.actionChan <- statepkg.NavigateUpAction{}
	case tcell.KeyDown:
		ih.actionChan <- statepkg.NavigateDownAction{}
	case tcell.KeyRune:
		ih.actionChan <- statepkg.SearchCharAction{Char: ev.Rune()}
	}
	return true
}

func (ih *InputHandler) processPreviewKey(ev *tcell.EventKey) bool {
	page := 10
	if ih.state != nil {
		page = ih.state.PreviewViewportHeight()
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyLeft, tcell.KeyBackspace, tcell.KeyBackspace2:
		ih.actionChan <- statepkg.ClosePreviewAction{}
	case tcell.KeyUp:
		ih.actionChan <- statepkg.PreviewScrollAction{Delta: -1}
	case tcell.KeyDown:
		ih.actionChan <- statepkg.PreviewScrollAction{Delta: 1}
	case tcell.KeyPgUp:
		ih.actionChan <- statepkg.PreviewScrollAction{Delta: -page}
	case tcell.KeyPgDn:
		ih.actionChan <- statepkg.PreviewScrollAction{Delta: page}
	case tcell.KeyHome:
		ih.actionChan <- statepkg.PreviewScrollAction{Delta: -1 << 30}
	case tcell.KeyEnd:
		ih.actionChan <- statepkg.PreviewScrollAction{Delta: 1 << 30}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'h':
			ih.actionChan <- statepkg.ClosePreviewAction{}
		case 'k':
			ih.actionChan <- statepkg.PreviewScrollAction{Delta: -1}
		case 'j':
			ih.actionChan <- statepkg.PreviewScrollAction{Delta: 1}
		case 'y':
			ih.actionChan <- statepkg.YankURLAction{}
		case 'd':
			ih.actionChan <- statepkg.DownloadAction{}
		case '?':
			ih.actionChan <- statepkg.ToggleHelpAction{}
		}
	}
	return true
}

func (ih *InputHandler) processNormalKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		ih.actionChan <- statepkg.ResetQueryAction{}
	case tcell.KeyUp:
		ih.actionChan <- statepkg.NavigateUpAction{}
	case tcell.KeyDown:
		ih.actionChan <- statepkg.NavigateDownAction{}
	case tcell.KeyPgUp:
		ih.actionChan <- statepkg.PageUpAction{}
	case tcell.KeyPgDn:
		ih.actionChan <- statepkg.PageDownAction{}
	case tcell.KeyHome:
		ih.actionChan <- statepkg.HomeAction{}
	case tcell.KeyEnd:
		ih.actionChan <- statepkg.EndAction{}
	case tcell.KeyEnter, tcell.KeyRight:
		ih.actionChan <- statepkg.ActivateAction{}
	case tcell.KeyLeft, tcell.KeyBackspace, tcell.KeyBackspace2:
		ih.actionChan <- statepkg.GoUpAction{}
	case tcell.KeyTab:
		ih.actionChan <- statepkg.CycleCategoryAction{Delta: 1}
	case tcell.KeyBacktab:
		ih.actionChan <- statepkg.CycleCategoryAction{Delta: -1}
	case tcell.KeyCtrlR:
		ih.actionChan <- statepkg.RefreshAction{}
	case tcell.KeyCtrlZ:
		ih.actionChan <- statepkg.SuspendAction{}
	case tcell.KeyRune:
		return ih.processNormalRune(ev.Rune())
	}
	return true
}

func (ih *InputHandler) processNormalRune(r rune) bool {
	if c, ok := categoryKeys[r]; ok {
		ih.actionChan <- statepkg.SelectCategoryAction{Category: c}
		return true
	}

	switch r {
	case 'q', 'Q':
		ih.actionChan <- statepkg.QuitAction{}
		return false
	case '?':
		ih.actionChan <- statepkg.ToggleHelpAction{}
	case '/':
		ih.actionChan <- statepkg.SearchStartAction{}
	case 'k':
		ih.actionChan <- statepkg.NavigateUpAction{}
	case 'j':
		ih.actionChan <- statepkg.NavigateDownAction{}
	case 'g':
		ih.actionChan <- statepkg.HomeAction{}
	case 'G':
		ih.actionChan <- statepkg.EndAction{}
	case 'l':
		ih.actionChan <- statepkg.ActivateAction{}
	case 'h':
		ih.actionChan <- statepkg.GoUpAction{}
	case 's', 'S':
		ih.actionChan <- statepkg.ToggleSortAction{}
	case 'r', 'R':
		ih.actionChan <- statepkg.RefreshAction{}
	case 'y':
		ih.actionChan <- statepkg.YankURLAction{}
	case 'd':
		ih.actionChan <- statepkg.DownloadAction{}
	case '~':
		ih.actionChan <- statepkg.GoToPathAction{Path: "/"}
	}
	return true
}
