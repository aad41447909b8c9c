package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

const DefaultTabWidth = 4

const ellipsis = "…"

// ExpandTabs replaces tab characters with spaces respecting terminal column width.
func ExpandTabs(text string, tabWidth int) string {
	if tabWidth <= 0 || !strings.ContainsRune(text, '\t') {
		return text
	}

	var builder strings.Builder
	column := 0
	for _, ru := range text {
		if ru == '\t' {
			spaces := tabWidth - (column % tabWidth)
			builder.WriteString(strings.Repeat(" ", spaces))
			column += spaces
			continue
		}
		builder.WriteRune(ru)
		column += max(runewidth.RuneWidth(ru), 1)
	}
	return builder.String()
}

// DisplayWidth reports the printable width of text, counting each grapheme
// cluster once.
func DisplayWidth(text string) int {
	return uniseg.StringWidth(text)
}

// Truncate shortens text to at most width columns, ending with an ellipsis
// when anything was cut. Grapheme clusters are never split.
func Truncate(text string, width int) string {
	if width <= 0 || text == "" {
		return ""
	}
	if DisplayWidth(text) <= width {
		return text
	}
	if width == 1 {
		return ellipsis
	}

	available := width - 1
	var builder strings.Builder
	used := 0
	state := -1
	rest := text
	for rest != "" {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > available {
			break
		}
		builder.WriteString(cluster)
		used += w
	}
	builder.WriteString(ellipsis)
	return builder.String()
}
