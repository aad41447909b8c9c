package state

import (
	"errors"
	"fmt"
	"time"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/metrics"
	"github.com/kk-code-lab/rbrowse/internal/preview"
	"github.com/kk-code-lab/rbrowse/internal/protocol"
	"github.com/kk-code-lab/rbrowse/internal/query"
	"github.com/kk-code-lab/rbrowse/internal/session"
)

// ErrNotConnected is returned for navigation attempted while the session is down.
var ErrNotConnected = errors.New("not connected")

// ListingError is a server's refusal to list a path.
type ListingError struct {
	Path    string
	Message string
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("cannot list %s: %s", e.Path, e.Message)
}

// ListingRequester sends FILES requests; session.Manager implements it.
type ListingRequester interface {
	RequestListing(path string) error
}

// PreviewLoader runs preview jobs; preview.Loader implements it.
type PreviewLoader interface {
	Start(req preview.Request)
	Cancel(token int)
}

// LinkBuilder produces download and view URLs; transfer.Client implements it.
type LinkBuilder interface {
	DownloadURL(remotePaths ...string) string
	ViewURL(remotePath string) string
}

// PreviewState is the open preview panel.
type PreviewState struct {
	Token     int
	Path      string
	Name      string
	Kind      preview.Kind
	URL       string
	Loading   bool
	Lines     []string
	Binary    bool
	Truncated bool
	Err       error
	Scroll    int
}

// DisplayLine is one line of the listing pane: either a group header or a row.
type DisplayLine struct {
	Header   fsutil.Category
	RowIndex int
}

// IsHeader reports whether the line is a group title.
func (l DisplayLine) IsHeader() bool {
	return l.RowIndex < 0
}

// AppState holds the complete application state
type AppState struct {
	// Session
	Connection    session.State
	ConnectionErr error
	VisitorID     string
	Config        *protocol.SessionConfig
	ServerURL     string
	LastInfo      string
	LastWarning   string

	// Listing and query
	Listing *listing.Store
	Query   query.ViewQuery
	View    query.View
	Loading bool
	rows    []query.Row
	lines   []DisplayLine

	// Selection and scroll are in display coordinates.
	SelectedIndex int
	ScrollOffset  int
	SearchActive  bool

	Preview      *PreviewState
	previewToken int

	ScreenWidth  int
	ScreenHeight int
	HelpVisible  bool

	ClipboardAvailable bool
	LastYankTime       time.Time
	StatusMessage      string
	LastError          error

	Requester     ListingRequester
	PreviewLoader PreviewLoader
	Links         LinkBuilder
	Metrics       *metrics.Metrics

	dispatchAction func(Action)
}

// NewAppState returns the initial state for a session rooted at startPath.
func NewAppState(serverURL, startPath string) *AppState {
	store := listing.NewStore()
	store.SetPath(startPath)
	return &AppState{
		Connection: session.Disconnected,
		ServerURL:  serverURL,
		Listing:    store,
		Query:      query.DefaultQuery(),
		Loading:    true,
	}
}

// SetDispatch exposes the reducer dispatch hook to other packages.
func (s *AppState) SetDispatch(fn func(Action)) {
	s.dispatchAction = fn
}

// Ready reports whether the listing is usable: connected and configured.
func (s *AppState) Ready() bool {
	return s.Connection == session.Connected && s.Config != nil
}

// CurrentPath is the navigation path.
func (s *AppState) CurrentPath() string {
	return s.Listing.Path()
}

// ServerName is the header title.
func (s *AppState) ServerName() string {
	if s.Config == nil {
		return protocol.SessionConfig{}.DisplayName()
	}
	return s.Config.DisplayName()
}

// UploadsAllowed reports the server's upload flag.
func (s *AppState) UploadsAllowed() bool {
	return s.Config != nil && s.Config.AllowUploads
}

// Rows returns the derived rows in display order.
func (s *AppState) Rows() []query.Row {
	return s.rows
}

// Lines returns the listing pane lines, including group headers.
func (s *AppState) Lines() []DisplayLine {
	return s.lines
}

// SelectedRow returns the selected row, or nil for an empty view.
func (s *AppState) SelectedRow() *query.Row {
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.rows) {
		return nil
	}
	return &s.rows[s.SelectedIndex]
}

// SearchLineVisible reports whether the search prompt occupies a row.
func (s *AppState) SearchLineVisible() bool {
	return s.SearchActive || s.Query.Search != ""
}

// ListStartY is the first screen row of the listing pane.
func (s *AppState) ListStartY() int {
	y := 1
	if s.SearchLineVisible() {
		y++
	}
	return y
}

// ListViewportHeight is the number of listing lines that fit on screen.
func (s *AppState) ListViewportHeight() int {
	h := s.ScreenHeight - s.ListStartY() - 2
	if h < 1 {
		return 1
	}
	return h
}

// PreviewViewportHeight is the number of preview lines that fit on screen.
func (s *AppState) PreviewViewportHeight() int {
	h := s.ScreenHeight - 3 - 2
	if h < 1 {
		return 1
	}
	return h
}

// LineForRow returns the display line index of a row.
func (s *AppState) LineForRow(row int) int {
	for i, l := range s.lines {
		if l.RowIndex == row {
			return i
		}
	}
	return -1
}

// RowAtScreenY maps a screen row to a row index, or -1.
func (s *AppState) RowAtScreenY(y int) int {
	idx := s.ScrollOffset + y - s.ListStartY()
	if y < s.ListStartY() || idx < 0 || idx >= len(s.lines) {
		return -1
	}
	return s.lines[idx].RowIndex
}

func buildLines(view query.View) []DisplayLine {
	if !view.Grouped {
		lines := make([]DisplayLine, len(view.Rows))
		for i := range view.Rows {
			lines[i] = DisplayLine{RowIndex: i}
		}
		return lines
	}
	lines := make([]DisplayLine, 0, len(view.Rows)+len(view.Groups))
	row := 0
	for _, g := range view.Groups {
		lines = append(lines, DisplayLine{Header: g.Category, RowIndex: -1})
		for range g.Rows {
			lines = append(lines, DisplayLine{RowIndex: row})
			row++
		}
	}
	return lines
}
