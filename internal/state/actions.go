package state

import (
	"time"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/preview"
	"github.com/kk-code-lab/rbrowse/internal/protocol"
	"github.com/kk-code-lab/rbrowse/internal/session"
)

// Action is the base interface for all state mutations
type Action interface{}

// ===== SESSION ACTIONS =====

type ConnectionStateAction struct {
	State session.State
	Err   error
}

type VisitorResolvedAction struct {
	ID string
}

// ListingReceivedAction carries a FILES response and the path it answers.
// Unmatched responses could not be tied to one request and are dropped.
type ListingReceivedAction struct {
	RequestedPath string
	Entries       []fsutil.Entry
	Unmatched     bool
}

// ListingFailedAction is a server ERROR reply to a listing request.
type ListingFailedAction struct {
	RequestedPath string
	Message       string
	Unmatched     bool
}

type ConfigReceivedAction struct {
	Config protocol.SessionConfig
}

type InfoReceivedAction struct {
	Text string
}

type DecodeFailedAction struct {
	Err           error
	RequestedPath string
	Unmatched     bool
}

// ===== NAVIGATION ACTIONS =====

type NavigateUpAction struct{}
type NavigateDownAction struct{}
type PageUpAction struct{}
type PageDownAction struct{}
type HomeAction struct{}
type EndAction struct{}

// SelectIndexAction selects a row by its position in display order.
type SelectIndexAction struct {
	Index int
}

// ActivateAction opens the selected directory or previews the selected file.
type ActivateAction struct{}
type GoUpAction struct{}
type GoToPathAction struct {
	Path string
}
type RefreshAction struct{}

// ===== SEARCH ACTIONS =====

type SearchStartAction struct{}
type SearchCharAction struct {
	Char rune
}
type SearchBackspaceAction struct{}
type SearchClearAction struct{}
type SearchConfirmAction struct{}

// ===== QUERY ACTIONS =====

type SelectCategoryAction struct {
	Category fsutil.Category
}
type CycleCategoryAction struct {
	Delta int
}
type ToggleSortAction struct{}
type ResetQueryAction struct{}

// ===== PREVIEW ACTIONS =====

type PreviewResultAction struct {
	Result preview.Result
}
type ClosePreviewAction struct{}
type PreviewScrollAction struct {
	Delta int
}

// ===== VIEW ACTIONS =====

type ResizeAction struct {
	Width  int
	Height int
}

type ToggleHelpAction struct{}

// YankURLAction copies the selected entry's download URL. Handled by the app.
type YankURLAction struct{}

// YankedAction reports the clipboard outcome.
type YankedAction struct {
	URL string
	At  time.Time
	Err error
}

// DownloadAction saves the selected file locally. Handled by the app.
type DownloadAction struct{}

type DownloadStartedAction struct {
	Name string
}

type DownloadResultAction struct {
	Name  string
	Local string
	Bytes int64
	Err   error
}

// SuspendAction stops the process and returns the terminal to the shell.
type SuspendAction struct{}

type QuitAction struct{}
