package render

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rbrowse/internal/listing"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
	textutil "github.com/kk-code-lab/rbrowse/internal/textutil"
)

const (
	sidebarWidth       = 24
	minSidebarTerminal = 60
	yankFlashDuration  = 100 * time.Millisecond
	breadcrumbSep      = " › "
)

// Renderer handles all UI rendering
type Renderer struct {
	screen           tcell.Screen
	theme            ColorTheme
	runeWidthCache   [128]int // ASCII cache (0-127)
	runeWidthCacheMu sync.RWMutex
	runeWidthWide    sync.Map // For non-ASCII runes
}

// NewRenderer creates a new renderer
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{
		screen: screen,
		theme:  GetColorTheme(),
	}
}

// SidebarWidth is the category sidebar width for a terminal width; zero
// when the terminal is too narrow to show it.
func SidebarWidth(w int) int {
	if w < minSidebarTerminal {
		return 0
	}
	return sidebarWidth
}

// MainPanelStart is the first column of the listing or preview pane.
func MainPanelStart(w int) int {
	if sw := SidebarWidth(w); sw > 0 {
		return sw + 1
	}
	return 0
}

// Render draws the entire UI based on state
func (r *Renderer) Render(state *statepkg.AppState) {
	r.screen.Clear()

	w, h := r.screen.Size()

	if state.HelpVisible {
		r.drawHelpOverlay(state, w, h)
		r.screen.Show()
		return
	}

	r.drawHeader(state, w)
	if sw := SidebarWidth(w); sw > 0 {
		r.drawSidebar(state, sw, h)
		for y := 1; y < h-2; y++ {
			r.screen.SetContent(sw, y, '│', nil, tcell.StyleDefault.Foreground(r.theme.MutedFg))
		}
	}

	start := MainPanelStart(w)
	if state.Preview != nil {
		r.drawPreviewPanel(state, start, w-start, h)
	} else {
		r.drawMainPanel(state, start, w-start, h)
	}
	r.drawStatusLine(state, w, h)

	r.screen.Show()
}

// drawHeader renders the top bar with the server name and breadcrumbs
func (r *Renderer) drawHeader(state *statepkg.AppState, w int) {
	headerStyle := tcell.StyleDefault.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg)
	titleStyle := headerStyle.Bold(true)

	title := textutil.SanitizeTerminalText(state.ServerName())
	endX := r.drawTextLine(0, 0, w, r.truncateTextToWidth(title, w/2), titleStyle)
	if endX < w {
		endX = r.drawTextLine(endX, 0, w-endX, "  ", headerStyle)
	}

	if endX < w {
		crumbs := r.formatBreadcrumbSegments(state.CurrentPath())
		lastIdx := len(crumbs) - 1
		if lastIdx > 0 {
			prefix := r.fitBreadcrumb(strings.Join(crumbs[:lastIdx], breadcrumbSep)+breadcrumbSep, (w-endX)/2)
			endX = r.drawTextLine(endX, 0, w-endX, prefix, headerStyle)
		}
		if endX < w {
			last := r.fitBreadcrumb(crumbs[lastIdx], w-endX)
			endX = r.drawTextLine(endX, 0, w-endX, last, headerStyle.Bold(true))
		}
	}

	r.fillRow(endX, w, 0, headerStyle)
}

// fitBreadcrumb trims the breadcrumb path from the left to fit the width,
// keeping the most specific part.
func (r *Renderer) fitBreadcrumb(path string, width int) string {
	if width <= 0 {
		return ""
	}
	if r.measureTextWidth(path) <= width {
		return path
	}

	const ellipsis = "…"
	if width <= 1 {
		return ellipsis
	}

	available := width - 1
	runes := []rune(path)
	start := len(runes)
	used := 0
	for start > 0 {
		w := r.cachedRuneWidth(runes[start-1])
		if used+w > available {
			break
		}
		used += w
		start--
	}
	return ellipsis + string(runes[start:])
}

func (r *Renderer) formatBreadcrumbSegments(path string) []string {
	crumbs := listing.Segments(path)
	segments := make([]string, len(crumbs))
	for i, c := range crumbs {
		segments[i] = textutil.SanitizeTerminalText(c.Name)
	}
	return segments
}

// drawStatusLine renders the two bottom rows: status text and key help
func (r *Renderer) drawStatusLine(state *statepkg.AppState, w, h int) {
	if h < 2 {
		return
	}
	normalStyle := tcell.StyleDefault.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg)

	text, style := r.statusText(state, normalStyle)
	r.drawPaddedLine(0, h-2, w, text, style)

	helpText := buildFooterHelpText(state)
	r.drawPaddedLine(0, h-1, w, helpText, normalStyle.Foreground(r.theme.MutedFg))
}

func (r *Renderer) statusText(state *statepkg.AppState, normalStyle tcell.Style) (string, tcell.Style) {
	if !state.LastYankTime.IsZero() && time.Since(state.LastYankTime) < yankFlashDuration {
		return state.StatusMessage, tcell.StyleDefault.Background(r.theme.FlashBg).Foreground(r.theme.FlashFg)
	}

	switch {
	case state.LastError != nil:
		return "error: " + state.LastError.Error(), normalStyle.Foreground(r.theme.ErrorFg)
	case state.StatusMessage != "":
		return state.StatusMessage, normalStyle
	case state.LastWarning != "":
		return state.LastWarning, normalStyle.Foreground(r.theme.WarningFg)
	}

	if p := state.Preview; p != nil {
		return p.Path, normalStyle
	}
	row := state.SelectedRow()
	if row == nil {
		return state.CurrentPath(), normalStyle
	}
	parts := []string{row.Path}
	if row.FormattedSize != "" {
		parts = append(parts, row.FormattedSize)
	}
	if row.Entry.MimeType != "" {
		parts = append(parts, row.Entry.MimeType)
	}
	if state.LastInfo != "" {
		parts = append(parts, fmt.Sprintf("server: %s", state.LastInfo))
	}
	return strings.Join(parts, " · "), normalStyle
}
