package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rbrowse/internal/preview"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

const (
	previewTitleRow   = 1
	previewInfoRow    = 2
	previewContentRow = 3
	previewPadding    = 1
)

// drawPreviewPanel renders the open preview in place of the listing
func (r *Renderer) drawPreviewPanel(state *statepkg.AppState, startX, panelWidth, h int) {
	p := state.Preview
	if p == nil || panelWidth <= 0 {
		return
	}
	base := tcell.StyleDefault.Background(r.theme.PreviewBg).Foreground(r.theme.PreviewFg)
	muted := base.Foreground(r.theme.MutedFg)
	bottom := h - 2

	if previewTitleRow < bottom {
		title := fmt.Sprintf(" %s  [%s]", p.Name, p.Kind)
		r.drawPaddedLine(startX, previewTitleRow, panelWidth, title, base.Bold(true))
	}
	if previewInfoRow < bottom {
		info, style := r.previewInfo(p, state.PreviewViewportHeight(), muted)
		r.drawPaddedLine(startX, previewInfoRow, panelWidth, info, style)
	}

	contentX := startX + previewPadding
	contentWidth := panelWidth - previewPadding
	y := previewContentRow

	if !p.Kind.Inline() {
		for _, line := range externalPreviewLines(p) {
			if y >= bottom {
				return
			}
			r.drawPaddedLine(contentX, y, contentWidth, line, base)
			y++
		}
		return
	}

	for i := p.Scroll; i < len(p.Lines) && y < bottom; i++ {
		r.drawPaddedLine(contentX, y, contentWidth, p.Lines[i], base)
		y++
	}
	if p.Truncated && y < bottom && p.Scroll+state.PreviewViewportHeight() >= len(p.Lines) {
		r.drawPaddedLine(contentX, y, contentWidth, "… preview truncated, download for the full file", muted)
	}
}

func (r *Renderer) previewInfo(p *statepkg.PreviewState, viewport int, muted tcell.Style) (string, tcell.Style) {
	switch {
	case p.Loading:
		return " loading preview…", muted
	case p.Err != nil:
		return " " + preview.ErrUnavailable.Error(), muted.Foreground(r.theme.WarningFg)
	case p.Binary:
		return " binary content, showing hex", muted
	}
	if len(p.Lines) > 0 {
		end := min(p.Scroll+viewport, len(p.Lines))
		return fmt.Sprintf(" lines %d-%d of %d", p.Scroll+1, end, len(p.Lines)), muted
	}
	return " " + p.URL, muted
}

func externalPreviewLines(p *statepkg.PreviewState) []string {
	var lead string
	switch p.Kind {
	case preview.Image, preview.Video, preview.Audio, preview.Pdf:
		lead = fmt.Sprintf("This %s opens in a browser:", p.Kind)
	default:
		lead = "No preview for this file type. Download it from:"
	}
	return []string{lead, "", p.URL, "", "y copies the link, d downloads the file"}
}
