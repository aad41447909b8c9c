package fs

import "strings"

// Category is the taxonomy bucket an entry is classified into.
type Category string

const (
	Directories Category = "Directories"
	Documents   Category = "Documents"
	Pictures    Category = "Pictures"
	Videos      Category = "Videos"
	Music       Category = "Music"
	Others      Category = "Others"

	// AllFiles is a filter/grouping mode only; Classify never returns it.
	AllFiles Category = "All Files"
)

var displayOrder = []Category{Directories, Documents, Pictures, Videos, Music, Others}

// documentMarkers are matched as substrings of the mime type.
var documentMarkers = []string{"pdf", "msword", "text", "officedocument", "presentation", "spreadsheet"}

// Categories returns the concrete categories in display order.
func Categories() []Category {
	out := make([]Category, len(displayOrder))
	copy(out, displayOrder)
	return out
}

// Classify maps an entry onto its category. Directories win over any mime type.
func Classify(e Entry) Category {
	if e.IsDir {
		return Directories
	}
	return ClassifyMime(e.MimeType)
}

// ClassifyMime classifies a non-directory by mime type alone.
func ClassifyMime(mime string) Category {
	if mime == "" {
		return Others
	}

	switch {
	case strings.HasPrefix(mime, "image/"):
		return Pictures
	case strings.HasPrefix(mime, "video/"):
		return Videos
	case strings.HasPrefix(mime, "audio/"):
		return Music
	}

	for _, marker := range documentMarkers {
		if strings.Contains(mime, marker) {
			return Documents
		}
	}
	return Others
}

// Label is the sidebar label for a category.
func (c Category) Label() string {
	if c == Directories {
		return "Folders"
	}
	return string(c)
}

// ParseCategory resolves user input such as "pictures", "folders" or "all".
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "", "all", "all files", "allfiles":
		return AllFiles, true
	case "folders", "dirs":
		return Directories, true
	}
	for _, c := range displayOrder {
		if strings.ToLower(string(c)) == key {
			return c, true
		}
	}
	return "", false
}
