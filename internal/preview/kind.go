package preview

import (
	"strings"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
)

// Kind selects how a file is previewed.
type Kind int

const (
	Unsupported Kind = iota
	Image
	Video
	Audio
	Pdf
	Text
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Pdf:
		return "pdf"
	case Text:
		return "text"
	default:
		return "unsupported"
	}
}

// Inline reports whether the preview content can be shown inside the terminal.
func (k Kind) Inline() bool {
	return k == Text
}

// Choose picks the preview strategy from the entry's mime type. Directories
// are navigated, not previewed, and come back Unsupported.
func Choose(e fsutil.Entry) Kind {
	if e.IsDir {
		return Unsupported
	}
	mime := e.MimeType
	switch {
	case strings.HasPrefix(mime, "image/"):
		return Image
	case strings.HasPrefix(mime, "video/"):
		return Video
	case strings.HasPrefix(mime, "audio/"):
		return Audio
	case mime == "application/pdf":
		return Pdf
	case strings.HasPrefix(mime, "text/"):
		return Text
	default:
		return Unsupported
	}
}
