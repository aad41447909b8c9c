package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/query"
	"github.com/kk-code-lab/rbrowse/internal/session"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
	textutil "github.com/kk-code-lab/rbrowse/internal/textutil"
)

const (
	sizeColumnWidth      = 10
	typeColumnWidth      = 22
	minTypeColumnPanel   = 56
	rowPrefixWidth       = 3
	columnGap            = 2
	directoryTypeLabel   = "folder"
	unknownTypeLabel     = "-"
	searchPromptPrefix   = "/"
	searchCursor         = '█'
	searchPlaceholder    = "(type to search)"
	loadingPlaceholder   = " Loading…"
	emptyPlaceholder     = " Empty directory"
	noMatchPlaceholder   = " No matching files"
	handshakePlaceholder = " Waiting for server configuration…"
)

// drawMainPanel renders the search line and the grouped listing
func (r *Renderer) drawMainPanel(state *statepkg.AppState, startX, panelWidth, h int) {
	if panelWidth <= 0 {
		return
	}
	baseStyle := tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Foreground)

	if state.SearchLineVisible() {
		r.drawSearchLine(state, startX, panelWidth, 1, baseStyle)
	}

	listStartY := state.ListStartY()
	bottom := h - 2
	if placeholder, style := r.listPlaceholder(state, baseStyle); placeholder != "" {
		if listStartY < bottom {
			r.drawPaddedLine(startX, listStartY, panelWidth, placeholder, style)
		}
		return
	}

	r.drawFileList(state, startX, panelWidth, listStartY, bottom, baseStyle)
}

func (r *Renderer) listPlaceholder(state *statepkg.AppState, base tcell.Style) (string, tcell.Style) {
	muted := base.Foreground(r.theme.MutedFg)
	if !state.Ready() {
		switch state.Connection {
		case session.Connected:
			return handshakePlaceholder, muted
		case session.Errored:
			msg := " Connection failed, retrying…"
			if state.ConnectionErr != nil {
				msg = fmt.Sprintf(" Connection failed (%v), retrying…", state.ConnectionErr)
			}
			return msg, base.Foreground(r.theme.ErrorFg)
		default:
			return fmt.Sprintf(" Connecting to %s…", state.ServerURL), muted
		}
	}
	if len(state.Rows()) > 0 {
		return "", base
	}
	if state.Loading || !state.Listing.Loaded() {
		return loadingPlaceholder, muted
	}
	if state.Query.Search != "" || state.View.Count(fsutil.AllFiles) > 0 {
		return noMatchPlaceholder, muted
	}
	return emptyPlaceholder, muted
}

func (r *Renderer) drawSearchLine(state *statepkg.AppState, startX, panelWidth, y int, base tcell.Style) {
	maxX := startX + panelWidth
	cursorStyle := base.Background(r.theme.SelectionBg).Foreground(r.theme.SelectionFg)

	x := r.drawTextLine(startX, y, panelWidth, searchPromptPrefix, base.Bold(true))
	query := textutil.SanitizeTerminalText(state.Query.Search)
	x = r.drawTextLine(x, y, maxX-x, query, base)
	if state.SearchActive && x < maxX {
		r.screen.SetContent(x, y, searchCursor, nil, cursorStyle)
		x++
	}
	if query == "" && x < maxX {
		x = r.drawTextLine(x, y, maxX-x, searchPlaceholder, base.Dim(true))
	} else if x < maxX {
		count := fmt.Sprintf("  %d of %d", len(state.Rows()), len(state.Listing.Current()))
		x = r.drawTextLine(x, y, maxX-x, count, base.Foreground(r.theme.MutedFg))
	}
	r.fillRow(x, maxX, y, base)
}

// drawFileList renders visible display lines from the scroll offset
func (r *Renderer) drawFileList(state *statepkg.AppState, startX, panelWidth, listStartY, bottom int, base tcell.Style) {
	lines := state.Lines()
	rows := state.Rows()
	showType := panelWidth >= minTypeColumnPanel

	y := listStartY
	for idx := state.ScrollOffset; idx < len(lines) && y < bottom; idx++ {
		line := lines[idx]
		if line.IsHeader() {
			header := fmt.Sprintf(" %s (%d)", line.Header.Label(), state.View.Count(line.Header))
			r.drawPaddedLine(startX, y, panelWidth, header, base.Foreground(r.theme.GroupHeaderFg).Bold(true))
			y++
			continue
		}

		row := rows[line.RowIndex]
		style := base.Foreground(r.theme.FileFg)
		if row.Entry.IsDir {
			style = base.Foreground(r.theme.DirectoryFg)
		}
		if line.RowIndex == state.SelectedIndex {
			style = tcell.StyleDefault.Background(r.theme.SelectionBg).Foreground(r.theme.SelectionFg)
		}
		r.drawPaddedLine(startX, y, panelWidth, r.formatRow(row, panelWidth, showType), style)
		y++
	}
}

// formatRow lays out "icon name  type  size" in the panel width.
func (r *Renderer) formatRow(row query.Row, panelWidth int, showType bool) string {
	icon := " "
	if row.Entry.IsDir {
		icon = "/"
	}
	prefix := " " + icon + " "

	nameWidth := panelWidth - rowPrefixWidth - sizeColumnWidth - columnGap
	if showType {
		nameWidth -= typeColumnWidth + columnGap
	}
	if nameWidth < 1 {
		return prefix + textutil.SanitizeTerminalText(row.Entry.Name)
	}

	name := r.padRight(textutil.SanitizeTerminalText(row.Entry.Name), nameWidth)
	text := prefix + name
	if showType {
		text += "  " + r.padRight(textutil.SanitizeTerminalText(typeLabel(row)), typeColumnWidth)
	}
	text += "  " + r.padLeft(row.FormattedSize, sizeColumnWidth)
	return text
}

func typeLabel(row query.Row) string {
	if row.Entry.IsDir {
		return directoryTypeLabel
	}
	if row.Entry.MimeType == "" {
		return unknownTypeLabel
	}
	return row.Entry.MimeType
}
