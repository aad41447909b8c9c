package textutil

import (
	"fmt"
	"strings"
	"unicode"
)

// Short names for the invisible format runes most often used to disguise a
// file name. Other format runes are shown by code point.
var formatRuneNames = map[rune]string{
	0x00AD: "SHY",
	0x061C: "ALM",
	0x200B: "ZWSP",
	0x200C: "ZWNJ",
	0x200D: "ZWJ",
	0x200E: "LRM",
	0x200F: "RLM",
	0x202A: "LRE",
	0x202B: "RLE",
	0x202C: "PDF",
	0x202D: "LRO",
	0x202E: "RLO",
	0x2060: "WJ",
	0x2066: "LRI",
	0x2067: "RLI",
	0x2068: "FSI",
	0x2069: "PDI",
	0xFEFF: "BOM",
}

// SanitizeTerminalText makes server-supplied text safe to draw. Control
// characters become '?', line breaks become spaces and invisible format
// runes are replaced by a visible marker such as ⟪RLO⟫. Tabs are kept.
func SanitizeTerminalText(text string) string {
	clean := true
	for _, r := range text {
		if unsafeRune(r) {
			clean = false
			break
		}
	}
	if clean {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		switch {
		case r == '\t':
			b.WriteRune(r)
		case r == '\n' || r == '\r' || r == 0x2028 || r == 0x2029:
			b.WriteByte(' ')
		case unicode.IsControl(r):
			b.WriteByte('?')
		case isFormatRune(r):
			b.WriteString(FormatRuneMarker(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatRuneMarker returns the visible stand-in for an invisible rune.
func FormatRuneMarker(r rune) string {
	if name, ok := formatRuneNames[r]; ok {
		return "⟪" + name + "⟫"
	}
	return fmt.Sprintf("⟪U+%04X⟫", r)
}

func unsafeRune(r rune) bool {
	if r == '\t' {
		return false
	}
	return unicode.IsControl(r) || isFormatRune(r) || r == 0x2028 || r == 0x2029
}

func isFormatRune(r rune) bool {
	return unicode.Is(unicode.Cf, r) || r == 0x180E
}
