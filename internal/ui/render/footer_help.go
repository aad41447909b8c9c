package render

import (
	"strings"

	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

// buildFooterHelpText returns the contextual footer hint string with leading/trailing padding.
func buildFooterHelpText(state *statepkg.AppState) string {
	parts := buildFooterHelpSegments(state)
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, "  ") + " "
}

// buildFooterHelpSegments assembles context-aware help hints for the footer.
func buildFooterHelpSegments(state *statepkg.AppState) []string {
	if state == nil {
		return nil
	}

	segments := contextualHelpSegments(state)
	segments = append(segments, persistentHelpSegments(state)...)

	return segments
}

func contextualHelpSegments(state *statepkg.AppState) []string {
	switch {
	case state.SearchActive:
		return []string{
			"type: search",
			"Esc: clear",
			"↵: accept",
			"↑↓: select",
		}
	case state.Preview != nil:
		return []string{
			"Esc/←: close",
			"↑↓/Pg: scroll",
		}
	case !state.Ready():
		return []string{"waiting for server"}
	default:
		return []string{
			"↑/↓/↵/←: navigate",
			"/: search",
			"Tab: category",
			"s: sort",
			"r: refresh",
		}
	}
}

func persistentHelpSegments(state *statepkg.AppState) []string {
	if state == nil || state.SearchActive {
		return nil
	}

	segments := []string{}
	if state.ClipboardAvailable {
		segments = append(segments, "y: yank link")
	}
	if state.Ready() {
		segments = append(segments, "d: download")
	}
	segments = append(segments, "?: help", "q: quit")

	return segments
}
