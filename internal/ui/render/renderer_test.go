package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/preview"
	"github.com/kk-code-lab/rbrowse/internal/protocol"
	"github.com/kk-code-lab/rbrowse/internal/session"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func screenRow(screen tcell.SimulationScreen, y int) string {
	cells, w, _ := screen.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		cell := cells[y*w+x]
		if len(cell.Runes) == 0 {
			continue
		}
		b.WriteString(string(cell.Runes))
	}
	return b.String()
}

func screenText(screen tcell.SimulationScreen) string {
	_, _, h := screen.GetContents()
	rows := make([]string, h)
	for y := 0; y < h; y++ {
		rows[y] = screenRow(screen, y)
	}
	return strings.Join(rows, "\n")
}

func readyState(t *testing.T, w, h int, entries []fsutil.Entry) *statepkg.AppState {
	t.Helper()
	state := statepkg.NewAppState("http://files.lan:8080", "/")
	state.ScreenWidth, state.ScreenHeight = w, h
	r := statepkg.NewStateReducer()
	actions := []statepkg.Action{
		statepkg.ConnectionStateAction{State: session.Connected},
		statepkg.ConfigReceivedAction{Config: protocol.SessionConfig{Name: "Lab Share"}},
		statepkg.VisitorResolvedAction{ID: "visitor-123"},
		statepkg.ListingReceivedAction{RequestedPath: "/", Entries: entries},
	}
	for _, a := range actions {
		if _, err := r.Reduce(state, a); err != nil {
			t.Fatalf("reduce %T: %v", a, err)
		}
	}
	return state
}

func TestTruncateTextToWidth(t *testing.T) {
	r := NewRenderer(nil)

	tests := []struct {
		name   string
		text   string
		width  int
		expect string
	}{
		{"fits without truncation", "file.txt", 20, "file.txt"},
		{"adds ellipsis when needed", "verylongname", 6, "veryl…"},
		{"only ellipsis when width too small", "example", 1, "…"},
		{"multi-byte characters respected", "你好世界", 5, "你好…"},
		{"returns empty when width is zero", "anything", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := r.truncateTextToWidth(tt.text, tt.width)
			if actual != tt.expect {
				t.Fatalf("expected %q, got %q (width %d)", tt.expect, actual, tt.width)
			}
		})
	}
}

func TestFitBreadcrumbKeepsTail(t *testing.T) {
	r := NewRenderer(nil)
	if got := r.fitBreadcrumb("/ › docs › reports", 10); got != "…› reports" {
		t.Fatalf("fitBreadcrumb = %q", got)
	}
	if got := r.fitBreadcrumb("short", 10); got != "short" {
		t.Fatalf("fitBreadcrumb = %q", got)
	}
}

func TestSidebarGeometry(t *testing.T) {
	if SidebarWidth(40) != 0 || MainPanelStart(40) != 0 {
		t.Fatal("narrow terminals should hide the sidebar")
	}
	if MainPanelStart(100) != SidebarWidth(100)+1 {
		t.Fatal("main panel should start after the separator")
	}
	if c, ok := SidebarCategoryAt(1); !ok || c != fsutil.AllFiles {
		t.Fatalf("row 1 = %q", c)
	}
	if c, ok := SidebarCategoryAt(2); !ok || c != fsutil.Directories {
		t.Fatalf("row 2 = %q", c)
	}
	if _, ok := SidebarCategoryAt(20); ok {
		t.Fatal("row past categories should not map")
	}
}

func TestRenderListing(t *testing.T) {
	screen := newSimScreen(t, 100, 20)
	state := readyState(t, 100, 20, []fsutil.Entry{
		{Name: "docs", IsDir: true},
		{Name: "photo.png", MimeType: "image/png", Size: fsutil.SizeOf(2048)},
		{Name: "legacy.bin", SizeText: "3 MB"},
	})

	NewRenderer(screen).Render(state)
	text := screenText(screen)

	if header := screenRow(screen, 0); !strings.HasPrefix(header, "Lab Share") {
		t.Fatalf("header = %q", header)
	}
	for _, want := range []string{
		"Folders (1)", "/ docs", "folder",
		"Pictures (1)", "photo.png", "image/png", "2.00 KB",
		"Others (1)", "legacy.bin", "3 MB",
		"● connected", "visitor-123",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("screen missing %q:\n%s", want, text)
		}
	}
	if row := screenRow(screen, 1); !strings.Contains(row, "All Files") || !strings.Contains(row, "3") {
		t.Fatalf("sidebar all-files row = %q", row)
	}
	if status := screenRow(screen, 18); !strings.Contains(status, "/docs") {
		t.Fatalf("status = %q", status)
	}
}

func TestRenderSanitizesServerText(t *testing.T) {
	screen := newSimScreen(t, 100, 20)
	state := readyState(t, 100, 20, []fsutil.Entry{{Name: "evil\x1b[31m.txt", MimeType: "text/plain"}})

	NewRenderer(screen).Render(state)
	if strings.ContainsRune(screenText(screen), '\x1b') {
		t.Fatal("escape sequence reached the screen")
	}
}

func TestRenderPlaceholders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*statepkg.AppState)
		want   string
	}{
		{"connecting", func(s *statepkg.AppState) { s.Connection = session.Connecting; s.Config = nil }, "Connecting to http://files.lan:8080"},
		{"errored", func(s *statepkg.AppState) {
			s.Connection = session.Errored
			s.ConnectionErr = errors.New("refused")
		}, "Connection failed (refused), retrying"},
		{"handshake", func(s *statepkg.AppState) { s.Config = nil }, "Waiting for server configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := newSimScreen(t, 100, 20)
			state := readyState(t, 100, 20, nil)
			tt.mutate(state)
			NewRenderer(screen).Render(state)
			if text := screenText(screen); !strings.Contains(text, tt.want) {
				t.Fatalf("missing %q:\n%s", tt.want, text)
			}
		})
	}

	screen := newSimScreen(t, 100, 20)
	NewRenderer(screen).Render(readyState(t, 100, 20, []fsutil.Entry{}))
	if text := screenText(screen); !strings.Contains(text, "Empty directory") {
		t.Fatalf("missing empty placeholder:\n%s", text)
	}
}

func TestRenderSearchLine(t *testing.T) {
	screen := newSimScreen(t, 100, 20)
	state := readyState(t, 100, 20, []fsutil.Entry{
		{Name: "alpha.txt", MimeType: "text/plain"},
		{Name: "beta.txt", MimeType: "text/plain"},
	})
	r := statepkg.NewStateReducer()
	for _, a := range []statepkg.Action{statepkg.SearchStartAction{}, statepkg.SearchCharAction{Char: 'b'}} {
		if _, err := r.Reduce(state, a); err != nil {
			t.Fatalf("reduce: %v", err)
		}
	}

	NewRenderer(screen).Render(state)
	row := screenRow(screen, 1)
	if !strings.Contains(row, "/b█") || !strings.Contains(row, "1 of 2") {
		t.Fatalf("search line = %q", row)
	}
	if text := screenText(screen); strings.Contains(text, "alpha.txt") {
		t.Fatalf("filtered row still drawn:\n%s", text)
	}
}

func TestRenderPreview(t *testing.T) {
	screen := newSimScreen(t, 100, 20)
	state := readyState(t, 100, 20, nil)
	state.Preview = &statepkg.PreviewState{
		Token: 1,
		Name:  "notes.txt",
		Path:  "/notes.txt",
		Kind:  preview.Text,
		Lines: []string{"first line", "second line"},
	}

	NewRenderer(screen).Render(state)
	text := screenText(screen)
	for _, want := range []string{"notes.txt  [text]", "lines 1-2 of 2", "first line", "second line"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q:\n%s", want, text)
		}
	}

	state.Preview = &statepkg.PreviewState{Token: 2, Name: "x.txt", Kind: preview.Text, Err: preview.ErrUnavailable}
	NewRenderer(screen).Render(state)
	if text := screenText(screen); !strings.Contains(text, "preview unavailable") {
		t.Fatalf("missing unavailable marker:\n%s", text)
	}

	state.Preview = &statepkg.PreviewState{Token: 3, Name: "pic.png", Kind: preview.Image, URL: "http://files.lan:8080/download?file=%2Fpic.png&view=1"}
	NewRenderer(screen).Render(state)
	if text := screenText(screen); !strings.Contains(text, "opens in a browser") || !strings.Contains(text, "view=1") {
		t.Fatalf("missing browser hint:\n%s", text)
	}
}

func TestRenderStatusShowsError(t *testing.T) {
	screen := newSimScreen(t, 100, 20)
	state := readyState(t, 100, 20, nil)
	state.LastError = statepkg.ErrNotConnected

	NewRenderer(screen).Render(state)
	if status := screenRow(screen, 18); !strings.Contains(status, "error: not connected") {
		t.Fatalf("status = %q", status)
	}
}

func TestRenderHelpOverlay(t *testing.T) {
	screen := newSimScreen(t, 80, 30)
	state := readyState(t, 80, 30, nil)
	state.HelpVisible = true

	NewRenderer(screen).Render(state)
	if text := screenText(screen); !strings.Contains(text, "Help") || !strings.Contains(text, "Search & Filter") {
		t.Fatalf("help overlay not drawn:\n%s", text)
	}
}
