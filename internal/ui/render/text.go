package render

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	textutil "github.com/kk-code-lab/rbrowse/internal/textutil"
)

func (r *Renderer) cachedRuneWidth(ru rune) int {
	if ru < 128 {
		r.runeWidthCacheMu.RLock()
		width := r.runeWidthCache[ru]
		r.runeWidthCacheMu.RUnlock()

		if width == 0 && ru != 0 {
			actualWidth := runewidth.RuneWidth(ru)
			if actualWidth < 0 {
				actualWidth = 0
			}
			r.runeWidthCacheMu.Lock()
			r.runeWidthCache[ru] = actualWidth + 1
			r.runeWidthCacheMu.Unlock()
			return actualWidth
		}
		return width - 1
	}

	if cached, ok := r.runeWidthWide.Load(ru); ok {
		return cached.(int)
	}

	width := runewidth.RuneWidth(ru)
	if width < 0 {
		width = 0
	}
	r.runeWidthWide.Store(ru, width)
	return width
}

func (r *Renderer) measureTextWidth(text string) int {
	return textutil.DisplayWidth(text)
}

func (r *Renderer) truncateTextToWidth(text string, maxWidth int) string {
	return textutil.Truncate(text, maxWidth)
}

// drawTextLine draws text clipped to maxWidth columns and returns the next x.
// Zero-width runes are attached to the preceding cell.
func (r *Renderer) drawTextLine(startX, y, maxWidth int, text string, style tcell.Style) int {
	x := startX
	runes := []rune(text)
	i := 0

	for i < len(runes) {
		if x-startX >= maxWidth {
			break
		}

		mainc := runes[i]
		i++

		var combc []rune
		for i < len(runes) && r.cachedRuneWidth(runes[i]) == 0 {
			combc = append(combc, runes[i])
			i++
		}

		w := r.cachedRuneWidth(mainc)
		if x-startX+w > maxWidth {
			break
		}
		r.screen.SetContent(x, y, mainc, combc, style)
		x += w
	}

	return x
}

// fillRow paints blanks from startX up to endX.
func (r *Renderer) fillRow(startX, endX, y int, style tcell.Style) {
	for x := startX; x < endX; x++ {
		r.screen.SetContent(x, y, ' ', nil, style)
	}
}

// drawPaddedLine draws text, truncated with an ellipsis, and pads the rest of
// the span with the same style.
func (r *Renderer) drawPaddedLine(startX, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	text = r.truncateTextToWidth(textutil.SanitizeTerminalText(text), width)
	endX := r.drawTextLine(startX, y, width, text, style)
	r.fillRow(endX, startX+width, y, style)
}

// padLeft right-aligns text in a field of width columns.
func (r *Renderer) padLeft(text string, width int) string {
	gap := width - r.measureTextWidth(text)
	if gap <= 0 {
		return text
	}
	return strings.Repeat(" ", gap) + text
}

// padRight left-aligns text in a field of width columns, truncating when needed.
func (r *Renderer) padRight(text string, width int) string {
	text = r.truncateTextToWidth(text, width)
	gap := width - r.measureTextWidth(text)
	if gap <= 0 {
		return text
	}
	return text + strings.Repeat(" ", gap)
}
