package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kk-code-lab/rbrowse/internal/listing"
	statepkg "github.com/kk-code-lab/rbrowse/internal/state"
)

const downloadTimeout = 30 * time.Minute

var (
	errNoClipboard   = errors.New("no clipboard tool found")
	errNothingChosen = errors.New("no file selected")
	errDirectory     = errors.New("folders cannot be downloaded")
)

// commandRunner is swapped in tests.
var commandRunner = func(name string, args []string, stdin string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// target returns the remote path and name the yank and download keys act
// on: the open preview, else the selected row.
func (app *Application) target() (remotePath, name string, isDir bool, ok bool) {
	if p := app.state.Preview; p != nil {
		return p.Path, p.Name, false, true
	}
	row := app.state.SelectedRow()
	if row == nil {
		return "", "", false, false
	}
	return row.Path, row.Entry.Name, row.Entry.IsDir, true
}

func (app *Application) handleYank() bool {
	remotePath, _, _, ok := app.target()
	if !ok || app.state.Links == nil {
		app.state.LastError = errNothingChosen
		return true
	}
	if !app.clipboardAvail || len(app.clipboardCmd) == 0 {
		app.reduce(statepkg.YankedAction{Err: errNoClipboard})
		return true
	}

	url := app.state.Links.DownloadURL(remotePath)
	if err := commandRunner(app.clipboardCmd[0], app.clipboardCmd[1:], url); err != nil {
		app.reduce(statepkg.YankedAction{URL: url, Err: err})
		return true
	}
	app.reduce(statepkg.YankedAction{URL: url, At: time.Now()})
	return true
}

// handleDownload saves the target file into the download directory off the
// UI goroutine and reports back through actions.
func (app *Application) handleDownload() bool {
	remotePath, name, isDir, ok := app.target()
	switch {
	case !ok:
		app.state.LastError = errNothingChosen
		return true
	case isDir:
		app.reduce(statepkg.DownloadResultAction{Name: name, Err: errDirectory})
		return true
	case app.transfer == nil || !app.state.Ready():
		app.reduce(statepkg.DownloadResultAction{Name: name, Err: statepkg.ErrNotConnected})
		return true
	}

	local := localDownloadPath(app.downloadDir, name)
	app.reduce(statepkg.DownloadStartedAction{Name: name})
	app.logger.Info("download started", "path", remotePath, "local", local)

	go func() {
		n, err := app.downloadTo(remotePath, local)
		if err != nil {
			app.logger.Warn("download failed", "path", remotePath, "error", err)
		} else {
			app.logger.Info("download finished", "path", remotePath, "bytes", n)
		}
		app.dispatch(statepkg.DownloadResultAction{Name: name, Local: local, Bytes: n, Err: err})
	}()
	return true
}

func (app *Application) downloadTo(remotePath, local string) (n int64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()
	go func() {
		select {
		case <-app.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	f, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(local)
		}
	}()
	return app.transfer.Download(ctx, remotePath, f)
}

// localDownloadPath picks a file name in dir that does not exist yet,
// appending " (n)" before the extension on collisions.
func localDownloadPath(dir, name string) string {
	name = filepath.Base(filepath.FromSlash(listing.NormalizePath(name)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "download"
	}
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

func actionName(action statepkg.Action) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", action), "state.")
}
