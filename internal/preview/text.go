package preview

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kk-code-lab/rbrowse/internal/textutil"
	"golang.org/x/text/encoding/unicode"
)

const (
	sniffSize                    = 4096
	nonPrintableThresholdPercent = 30
	hexLineWidth                 = 16
)

type bom int

const (
	bomNone bom = iota
	bomUTF8
	bomUTF16LE
	bomUTF16BE
)

func detectBOM(sample []byte) bom {
	if len(sample) >= 3 && sample[0] == 0xEF && sample[1] == 0xBB && sample[2] == 0xBF {
		return bomUTF8
	}
	if len(sample) >= 2 {
		switch {
		case sample[0] == 0xFF && sample[1] == 0xFE:
			return bomUTF16LE
		case sample[0] == 0xFE && sample[1] == 0xFF:
			return bomUTF16BE
		}
	}
	return bomNone
}

// LooksLikeText sniffs the head of a payload. A server may label a file
// text/* even when the bytes are not.
func LooksLikeText(content []byte) bool {
	if len(content) == 0 {
		return true
	}
	sample := content
	if len(sample) > sniffSize {
		sample = sample[:sniffSize]
	}
	if detectBOM(sample) != bomNone {
		return true
	}
	if bytes.IndexByte(sample, 0x00) != -1 {
		return false
	}
	if utf8.Valid(sample) {
		return true
	}

	bad := 0
	for _, b := range sample {
		if !isTextByte(b) {
			bad++
		}
	}
	return bad*100/len(sample) < nonPrintableThresholdPercent
}

func isTextByte(b byte) bool {
	switch {
	case b == '\t' || b == '\n' || b == '\r' || b == 0x1B:
		return true
	case b >= 0x20 && b <= 0x7E:
		return true
	default:
		return b >= 0x80
	}
}

// DecodeText converts UTF-8, UTF-8 with BOM, and BOM-prefixed UTF-16 to a
// Go string.
func DecodeText(content []byte) string {
	switch detectBOM(content) {
	case bomUTF8:
		return string(content[3:])
	case bomUTF16LE:
		return decodeUTF16(content, unicode.LittleEndian)
	case bomUTF16BE:
		return decodeUTF16(content, unicode.BigEndian)
	default:
		return string(content)
	}
}

func decodeUTF16(content []byte, endian unicode.Endianness) string {
	out, err := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(out)
}

// TextLines splits decoded text into display-safe lines with tabs expanded.
func TextLines(content []byte, maxLines int) (lines []string, truncated bool) {
	text := DecodeText(content)
	if text == "" {
		return nil, false
	}
	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if maxLines > 0 && len(raw) > maxLines {
		raw = raw[:maxLines]
		truncated = true
	}
	lines = make([]string, len(raw))
	for i, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		line = textutil.ExpandTabs(line, textutil.DefaultTabWidth)
		lines[i] = textutil.SanitizeTerminalText(line)
	}
	return lines, truncated
}

// HexLines renders a classic offset/hex/ascii dump.
func HexLines(content []byte, maxLines int) (lines []string, truncated bool) {
	for offset := 0; offset < len(content); offset += hexLineWidth {
		if maxLines > 0 && len(lines) == maxLines {
			return lines, true
		}
		end := offset + hexLineWidth
		if end > len(content) {
			end = len(content)
		}
		lines = append(lines, hexLine(offset, content[offset:end]))
	}
	return lines, false
}

func hexLine(offset int, chunk []byte) string {
	var b strings.Builder
	b.Grow(80)
	fmt.Fprintf(&b, "%08X  ", offset)
	for i := 0; i < hexLineWidth; i++ {
		if i < len(chunk) {
			fmt.Fprintf(&b, "%02X ", chunk[i])
		} else {
			b.WriteString("   ")
		}
		if i == 7 {
			b.WriteByte(' ')
		}
	}
	b.WriteString(" |")
	for _, c := range chunk {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	b.WriteString(strings.Repeat(" ", hexLineWidth-len(chunk)))
	b.WriteByte('|')
	return b.String()
}
