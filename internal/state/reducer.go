package state

import (
	"fmt"
	"path"
	"unicode/utf8"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/preview"
	"github.com/kk-code-lab/rbrowse/internal/query"
	"github.com/kk-code-lab/rbrowse/internal/session"
)

// StateReducer applies actions to AppState. Only the app loop calls Reduce.
type StateReducer struct {
	selectionHistory map[string]string // path -> selected entry name
}

// NewStateReducer creates a new reducer
func NewStateReducer() *StateReducer {
	return &StateReducer{
		selectionHistory: make(map[string]string),
	}
}

// Reduce processes an action and updates state
func (r *StateReducer) Reduce(state *AppState, action Action) (*AppState, error) {
	switch a := action.(type) {

	// ===== SESSION =====

	case ConnectionStateAction:
		state.Connection = a.State
		state.ConnectionErr = a.Err
		switch a.State {
		case session.Connecting:
			state.Config = nil
		case session.Connected:
			state.Loading = true
			state.LastWarning = ""
		}
		return state, nil

	case VisitorResolvedAction:
		state.VisitorID = a.ID
		return state, nil

	case ConfigReceivedAction:
		cfg := a.Config
		state.Config = &cfg
		return state, nil

	case InfoReceivedAction:
		state.LastInfo = a.Text
		return state, nil

	case DecodeFailedAction:
		state.LastWarning = "server sent an unreadable message"
		if !a.Unmatched && listing.NormalizePath(a.RequestedPath) == state.CurrentPath() {
			state.Loading = false
		}
		return state, nil

	case ListingFailedAction:
		if a.Unmatched || listing.NormalizePath(a.RequestedPath) != state.CurrentPath() {
			state.LastWarning = "server error: " + a.Message
			return state, nil
		}
		state.Loading = false
		state.LastError = &ListingError{Path: state.CurrentPath(), Message: a.Message}
		return state, nil

	case ListingReceivedAction:
		keep := ""
		if row := state.SelectedRow(); row != nil {
			keep = row.Entry.Name
		}
		if a.Unmatched || !state.Listing.Apply(a.RequestedPath, a.Entries) {
			state.Metrics.RecordStaleListing()
			return state, nil
		}
		if keep == "" {
			keep = r.selectionHistory[state.CurrentPath()]
		}
		state.Loading = false
		state.LastError = nil
		r.refreshView(state, keep)
		return state, nil

	// ===== NAVIGATION =====

	case NavigateDownAction:
		r.moveSelection(state, 1)
		return state, nil

	case NavigateUpAction:
		r.moveSelection(state, -1)
		return state, nil

	case PageDownAction:
		r.moveSelection(state, state.ListViewportHeight())
		return state, nil

	case PageUpAction:
		r.moveSelection(state, -state.ListViewportHeight())
		return state, nil

	case HomeAction:
		r.selectIndex(state, 0)
		return state, nil

	case EndAction:
		r.selectIndex(state, len(state.rows)-1)
		return state, nil

	case SelectIndexAction:
		if a.Index < 0 || a.Index >= len(state.rows) {
			return state, nil
		}
		r.selectIndex(state, a.Index)
		return state, nil

	case ActivateAction:
		row := state.SelectedRow()
		if row == nil {
			return state, nil
		}
		if row.Entry.IsDir {
			return state, r.navigate(state, row.Path, "")
		}
		r.openPreview(state, *row)
		return state, nil

	case GoUpAction:
		if state.Preview != nil {
			r.closePreview(state)
			return state, nil
		}
		current := state.CurrentPath()
		if current == listing.Root {
			return state, nil
		}
		return state, r.navigate(state, listing.ParentPath(current), path.Base(current))

	case GoToPathAction:
		return state, r.navigate(state, a.Path, "")

	case RefreshAction:
		if state.Connection != session.Connected {
			return state, ErrNotConnected
		}
		state.Loading = true
		if state.Requester == nil {
			return state, nil
		}
		return state, state.Requester.RequestListing(state.CurrentPath())

	// ===== SEARCH =====

	case SearchStartAction:
		state.SearchActive = true
		r.updateScrollVisibility(state)
		return state, nil

	case SearchCharAction:
		if !state.SearchActive {
			return state, nil
		}
		state.Query.Search += string(a.Char)
		r.refreshQuery(state)
		return state, nil

	case SearchBackspaceAction:
		if state.Query.Search == "" {
			state.SearchActive = false
			r.updateScrollVisibility(state)
			return state, nil
		}
		_, size := utf8.DecodeLastRuneInString(state.Query.Search)
		state.Query.Search = state.Query.Search[:len(state.Query.Search)-size]
		r.refreshQuery(state)
		return state, nil

	case SearchClearAction:
		state.SearchActive = false
		state.Query.Search = ""
		r.refreshQuery(state)
		return state, nil

	case SearchConfirmAction:
		state.SearchActive = false
		r.updateScrollVisibility(state)
		return state, nil

	// ===== QUERY =====

	case SelectCategoryAction:
		state.Query.Category = a.Category
		r.refreshQuery(state)
		return state, nil

	case CycleCategoryAction:
		state.Query.Category = cycleCategory(state.Query.Category, a.Delta)
		r.refreshQuery(state)
		return state, nil

	case ToggleSortAction:
		state.Query.Direction = state.Query.Direction.Toggle()
		r.refreshQuery(state)
		return state, nil

	case ResetQueryAction:
		state.Query = query.DefaultQuery()
		state.SearchActive = false
		r.refreshQuery(state)
		return state, nil

	// ===== PREVIEW =====

	case PreviewResultAction:
		p := state.Preview
		if p == nil || a.Result.Token != p.Token {
			return state, nil
		}
		p.Loading = false
		p.Kind = a.Result.Kind
		p.Lines = a.Result.Lines
		p.Binary = a.Result.Binary
		p.Truncated = a.Result.Truncated
		p.Err = a.Result.Err
		p.Scroll = 0
		return state, nil

	case ClosePreviewAction:
		r.closePreview(state)
		return state, nil

	case PreviewScrollAction:
		if state.Preview == nil {
			return state, nil
		}
		state.Preview.Scroll = clampPreviewScroll(state, state.Preview.Scroll+a.Delta)
		return state, nil

	// ===== VIEW =====

	case ResizeAction:
		state.ScreenWidth = a.Width
		state.ScreenHeight = a.Height
		r.updateScrollVisibility(state)
		if state.Preview != nil {
			state.Preview.Scroll = clampPreviewScroll(state, state.Preview.Scroll)
		}
		return state, nil

	case ToggleHelpAction:
		state.HelpVisible = !state.HelpVisible
		return state, nil

	case YankedAction:
		if a.Err != nil {
			state.LastError = a.Err
			return state, nil
		}
		state.LastYankTime = a.At
		state.StatusMessage = "copied " + a.URL
		return state, nil

	case DownloadStartedAction:
		state.StatusMessage = fmt.Sprintf("downloading %s...", a.Name)
		return state, nil

	case DownloadResultAction:
		if a.Err != nil {
			state.StatusMessage = ""
			state.LastError = fmt.Errorf("download %s: %w", a.Name, a.Err)
			return state, nil
		}
		state.StatusMessage = fmt.Sprintf("saved %s (%s)", a.Local, fsutil.FormatSize(a.Bytes))
		return state, nil

	case YankURLAction, DownloadAction, SuspendAction, QuitAction:
		return state, nil
	}

	return state, fmt.Errorf("unknown action: %T", action)
}

func (r *StateReducer) navigate(state *AppState, target, selectName string) error {
	if state.Connection != session.Connected {
		return ErrNotConnected
	}
	target = listing.NormalizePath(target)
	current := state.CurrentPath()
	if row := state.SelectedRow(); row != nil {
		r.selectionHistory[current] = row.Entry.Name
	}
	if selectName != "" {
		r.selectionHistory[target] = selectName
	}

	r.closePreview(state)
	state.Listing.SetPath(target)
	state.Loading = true
	state.LastError = nil
	state.SelectedIndex = 0
	state.ScrollOffset = 0
	r.refreshView(state, "")

	if state.Requester == nil {
		return nil
	}
	return state.Requester.RequestListing(target)
}

// refreshQuery re-derives the view after a query change, keeping the
// selected entry when it is still visible.
func (r *StateReducer) refreshQuery(state *AppState) {
	keep := ""
	if row := state.SelectedRow(); row != nil {
		keep = row.Entry.Name
	}
	r.refreshView(state, keep)
}

func (r *StateReducer) refreshView(state *AppState, keep string) {
	state.View = query.DeriveView(state.Listing.Current(), state.Query, state.CurrentPath())
	state.rows = state.View.Ordered()
	state.lines = buildLines(state.View)

	idx := 0
	if keep != "" {
		for i, row := range state.rows {
			if row.Entry.Name == keep {
				idx = i
				break
			}
		}
	}
	state.SelectedIndex = idx
	if len(state.rows) == 0 {
		state.SelectedIndex = 0
	}
	r.updateScrollVisibility(state)
}

func (r *StateReducer) moveSelection(state *AppState, delta int) {
	if len(state.rows) == 0 {
		return
	}
	r.selectIndex(state, state.SelectedIndex+delta)
}

func (r *StateReducer) selectIndex(state *AppState, idx int) {
	if len(state.rows) == 0 {
		state.SelectedIndex = 0
		return
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(state.rows) {
		idx = len(state.rows) - 1
	}
	state.SelectedIndex = idx
	r.updateScrollVisibility(state)
}

// updateScrollVisibility keeps the selected row, and its group header when
// it is the first row of a group, inside the viewport.
func (r *StateReducer) updateScrollVisibility(state *AppState) {
	visible := state.ListViewportHeight()
	line := state.LineForRow(state.SelectedIndex)
	if line < 0 {
		state.ScrollOffset = 0
		return
	}

	top := line
	if line > 0 && state.lines[line-1].IsHeader() {
		top = line - 1
	}
	if top < state.ScrollOffset {
		state.ScrollOffset = top
	} else if line >= state.ScrollOffset+visible {
		state.ScrollOffset = line - visible + 1
	}

	maxOffset := len(state.lines) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if state.ScrollOffset > maxOffset {
		state.ScrollOffset = maxOffset
	}
	if state.ScrollOffset < 0 {
		state.ScrollOffset = 0
	}
}

func (r *StateReducer) openPreview(state *AppState, row query.Row) {
	r.closePreview(state)
	state.previewToken++
	kind := preview.Choose(row.Entry)
	p := &PreviewState{
		Token: state.previewToken,
		Path:  row.Path,
		Name:  row.Entry.Name,
		Kind:  kind,
	}
	if state.Links != nil {
		if kind == preview.Unsupported {
			p.URL = state.Links.DownloadURL(row.Path)
		} else {
			p.URL = state.Links.ViewURL(row.Path)
		}
	}
	state.Preview = p

	if !kind.Inline() {
		return
	}
	if state.PreviewLoader == nil {
		p.Err = preview.ErrUnavailable
		return
	}
	p.Loading = true
	dispatch := state.dispatchAction
	state.PreviewLoader.Start(preview.Request{
		Token: p.Token,
		Path:  row.Path,
		Entry: row.Entry,
		Callback: func(res preview.Result) {
			if dispatch != nil {
				dispatch(PreviewResultAction{Result: res})
			}
		},
	})
}

func (r *StateReducer) closePreview(state *AppState) {
	if state.Preview == nil {
		return
	}
	if state.Preview.Loading && state.PreviewLoader != nil {
		state.PreviewLoader.Cancel(state.Preview.Token)
	}
	state.Preview = nil
}

func clampPreviewScroll(state *AppState, scroll int) int {
	maxScroll := len(state.Preview.Lines) - state.PreviewViewportHeight()
	if scroll > maxScroll {
		scroll = maxScroll
	}
	if scroll < 0 {
		scroll = 0
	}
	return scroll
}

func cycleCategory(current fsutil.Category, delta int) fsutil.Category {
	order := append([]fsutil.Category{fsutil.AllFiles}, fsutil.Categories()...)
	if current == "" {
		current = fsutil.AllFiles
	}
	idx := 0
	for i, c := range order {
		if c == current {
			idx = i
			break
		}
	}
	n := len(order)
	idx = ((idx+delta)%n + n) % n
	return order[idx]
}
