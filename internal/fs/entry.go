package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is a single file or directory record as sent by the server for one path.
type Entry struct {
	Name  string
	IsDir bool
	// Size is nil when the server did not report a numeric byte count.
	Size *int64
	// SizeText holds a pre-formatted size sent by older servers instead of a number.
	SizeText string
	// MimeType is empty when absent.
	MimeType string
}

type wireEntry struct {
	Name     string          `json:"name"`
	IsDir    bool            `json:"is_dir"`
	Size     json.RawMessage `json:"size,omitempty"`
	MimeType *string         `json:"mimeType,omitempty"`
}

// UnmarshalJSON accepts size as a number, null, or a legacy string.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*e = Entry{Name: w.Name, IsDir: w.IsDir}
	if w.MimeType != nil {
		e.MimeType = *w.MimeType
	}

	raw := bytes.TrimSpace(w.Size)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("entry %q size: %w", w.Name, err)
		}
		e.SizeText = text
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("entry %q size: %w", w.Name, err)
		}
		size, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return fmt.Errorf("entry %q size: %w", w.Name, err)
			}
			size = int64(f)
		}
		if size >= 0 {
			e.Size = &size
		}
	}
	return nil
}

// MarshalJSON writes the wire shape used by the server.
func (e Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{Name: e.Name, IsDir: e.IsDir}
	switch {
	case e.Size != nil:
		w.Size, _ = json.Marshal(*e.Size)
	case e.SizeText != "":
		w.Size, _ = json.Marshal(e.SizeText)
	}
	if e.MimeType != "" {
		mime := e.MimeType
		w.MimeType = &mime
	}
	return json.Marshal(w)
}

// HasSize reports whether a numeric byte count is known.
func (e Entry) HasSize() bool {
	return e.Size != nil
}

// ValidName reports whether name is a single path segment.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}

// SizeOf is a convenience for building entries in code and tests.
func SizeOf(n int64) *int64 {
	return &n
}
