package render

import (
	"slices"
	"testing"

	"github.com/kk-code-lab/rbrowse/internal/protocol"
	"github.com/kk-code-lab/rbrowse/internal/session"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

func readyFooterState() *statepkg.AppState {
	state := statepkg.NewAppState("", "/")
	state.Connection = session.Connected
	state.Config = &protocol.SessionConfig{}
	return state
}

func TestBuildFooterHelpSegments_DefaultMode(t *testing.T) {
	state := readyFooterState()
	state.ClipboardAvailable = true

	got := buildFooterHelpSegments(state)
	want := []string{
		"↑/↓/↵/←: navigate",
		"/: search",
		"Tab: category",
		"s: sort",
		"r: refresh",
		"y: yank link",
		"d: download",
		"?: help",
		"q: quit",
	}

	if !slices.Equal(got, want) {
		t.Fatalf("default help mismatch\nwant: %#v\n got: %#v", want, got)
	}
}

func TestBuildFooterHelpSegments_SearchMode(t *testing.T) {
	state := readyFooterState()
	state.SearchActive = true

	got := buildFooterHelpSegments(state)
	want := []string{"type: search", "Esc: clear", "↵: accept", "↑↓: select"}
	if !slices.Equal(got, want) {
		t.Fatalf("search help mismatch\nwant: %#v\n got: %#v", want, got)
	}
}

func TestBuildFooterHelpSegments_NotReady(t *testing.T) {
	state := statepkg.NewAppState("", "/")

	got := buildFooterHelpSegments(state)
	want := []string{"waiting for server", "?: help", "q: quit"}
	if !slices.Equal(got, want) {
		t.Fatalf("not-ready help mismatch\nwant: %#v\n got: %#v", want, got)
	}
}

func TestBuildFooterHelpText_Padding(t *testing.T) {
	if got := buildFooterHelpText(nil); got != "" {
		t.Fatalf("expected empty text for nil state, got %q", got)
	}
	got := buildFooterHelpText(statepkg.NewAppState("", "/"))
	if got[0] != ' ' || got[len(got)-1] != ' ' {
		t.Fatalf("expected padding, got %q", got)
	}
}
