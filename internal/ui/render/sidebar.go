package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/session"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

const sidebarFirstRow = 1

// SidebarCategories lists the filter entries in sidebar order.
func SidebarCategories() []fsutil.Category {
	return append([]fsutil.Category{fsutil.AllFiles}, fsutil.Categories()...)
}

// SidebarCategoryAt maps a screen row inside the sidebar to its category.
func SidebarCategoryAt(y int) (fsutil.Category, bool) {
	cats := SidebarCategories()
	idx := y - sidebarFirstRow
	if idx < 0 || idx >= len(cats) {
		return "", false
	}
	return cats[idx], true
}

// drawSidebar renders category filters with counts, then session details
func (r *Renderer) drawSidebar(state *statepkg.AppState, width, h int) {
	baseStyle := tcell.StyleDefault.Background(r.theme.SidebarBg).Foreground(r.theme.SidebarFg)
	activeStyle := tcell.StyleDefault.Background(r.theme.SidebarActiveBg).Foreground(r.theme.SidebarActiveFg)
	mutedStyle := baseStyle.Foreground(r.theme.MutedFg)
	bottom := h - 2

	active := state.Query.Category
	if active == "" {
		active = fsutil.AllFiles
	}

	y := sidebarFirstRow
	for _, c := range SidebarCategories() {
		if y >= bottom {
			return
		}
		style := baseStyle
		if c == active {
			style = activeStyle
		}
		count := ""
		if state.Listing.Loaded() {
			count = fmt.Sprintf("%d", state.View.Count(c))
		}
		label := r.padRight(" "+c.Label(), width-6) + r.padLeft(count, 5) + " "
		r.drawPaddedLine(0, y, width, label, style)
		y++
	}

	lines := []struct {
		text  string
		style tcell.Style
	}{
		{"", baseStyle},
		{" " + connectionLabel(state), r.connectionStyle(state, baseStyle)},
		{" sort: name " + state.Query.Direction.String(), mutedStyle},
		{"", baseStyle},
		{" visitor", mutedStyle},
		{" " + visitorLabel(state.VisitorID), baseStyle},
	}
	for _, line := range lines {
		if y >= bottom {
			return
		}
		r.drawPaddedLine(0, y, width, line.text, line.style)
		y++
	}
}

func connectionLabel(state *statepkg.AppState) string {
	switch state.Connection {
	case session.Connected:
		if state.Config == nil {
			return "● handshaking"
		}
		return "● connected"
	case session.Connecting:
		return "○ connecting"
	case session.Errored:
		return "✗ error, retrying"
	default:
		return "○ disconnected"
	}
}

func (r *Renderer) connectionStyle(state *statepkg.AppState, base tcell.Style) tcell.Style {
	switch state.Connection {
	case session.Connected:
		return base.Foreground(r.theme.ConnectedFg)
	case session.Errored:
		return base.Foreground(r.theme.ErrorFg)
	default:
		return base.Foreground(r.theme.WarningFg)
	}
}

func visitorLabel(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
