package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
)

// Frame prefixes used on the wire.
const (
	PrefixConnect = "CONNECT"
	PrefixFiles   = "FILES"
	PrefixConfig  = "CONFIG"
	// PrefixError marks a server-side failure reply. It decodes as Info.
	PrefixError = "ERROR"
)

const separator = ": "

var (
	// ErrListingParse marks a FILES frame whose payload is not a JSON entry array.
	ErrListingParse = errors.New("listing parse failed")
	// ErrConfigParse marks a CONFIG frame whose payload is not a JSON object.
	ErrConfigParse = errors.New("config parse failed")
)

// Frame is one decoded server message: Files, Config or Info.
type Frame interface {
	isFrame()
}

// Files carries the full listing for the most recently requested path.
type Files struct {
	Entries []fsutil.Entry
}

// Config carries server metadata. It is sent once per connection.
type Config struct {
	Config SessionConfig
}

// Info is any frame with an unrecognized prefix, kept as opaque text.
type Info struct {
	Text string
}

// IsError reports whether the server sent the text as a failure reply.
func (i Info) IsError() bool {
	return strings.HasPrefix(i.Text, PrefixError+separator)
}

func (Files) isFrame()  {}
func (Config) isFrame() {}
func (Info) isFrame()   {}

// SessionConfig is the server-provided metadata object.
type SessionConfig struct {
	Name         string
	AllowUploads bool
	// Raw keeps every key the server sent, including ones not modelled above.
	Raw map[string]any
}

// DisplayName returns the server name or a generic fallback.
func (c SessionConfig) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "File Browser"
}

// DecodeError reports a recognized frame whose payload could not be decoded.
type DecodeError struct {
	Prefix string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s frame: %v", e.Prefix, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode classifies and decodes one inbound message. Unknown prefixes are
// not errors; they come back as Info.
func Decode(raw string) (Frame, error) {
	raw = strings.TrimSuffix(raw, "\n")
	raw = strings.TrimSuffix(raw, "\r")

	prefix, payload, ok := strings.Cut(raw, separator)
	if !ok {
		return Info{Text: raw}, nil
	}

	switch prefix {
	case PrefixFiles:
		entries, err := decodeEntries(payload)
		if err != nil {
			return nil, &DecodeError{Prefix: prefix, Err: fmt.Errorf("%w: %v", ErrListingParse, err)}
		}
		return Files{Entries: entries}, nil
	case PrefixConfig:
		cfg, err := decodeConfig(payload)
		if err != nil {
			return nil, &DecodeError{Prefix: prefix, Err: fmt.Errorf("%w: %v", ErrConfigParse, err)}
		}
		return Config{Config: cfg}, nil
	default:
		return Info{Text: raw}, nil
	}
}

func decodeEntries(payload string) ([]fsutil.Entry, error) {
	var entries []fsutil.Entry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		return nil, errors.New("listing payload is not an array")
	}

	kept := entries[:0]
	for _, e := range entries {
		if !fsutil.ValidName(e.Name) {
			continue
		}
		kept = append(kept, e)
	}
	if kept == nil {
		kept = []fsutil.Entry{}
	}
	return kept, nil
}

func decodeConfig(payload string) (SessionConfig, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return SessionConfig{}, err
	}
	if raw == nil {
		return SessionConfig{}, errors.New("config payload is null")
	}

	cfg := SessionConfig{Raw: raw}
	if name, ok := lookup(raw, "Name").(string); ok {
		cfg.Name = name
	}
	if allow, ok := lookup(raw, "AllowUploads").(bool); ok {
		cfg.AllowUploads = allow
	}
	return cfg, nil
}

// lookup matches the exported Go field name first, then any casing.
func lookup(raw map[string]any, key string) any {
	if v, ok := raw[key]; ok {
		return v
	}
	for k, v := range raw {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

// EncodeConnect builds the handshake frame.
func EncodeConnect(visitorID string) string {
	return PrefixConnect + separator + visitorID
}

// EncodeFiles builds a listing request for an absolute path.
func EncodeFiles(path string) string {
	return PrefixFiles + separator + path
}
