package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/cobra"

	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/listing"
)

const defaultArchiveName = "download.zip"

func newGetCmd(env *cliEnv) *cobra.Command {
	var outPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "get <remote-path>...",
		Short: "Download remote files",
		Long: `Download one file, or several files bundled by the server into a
single zip archive.`,
		Example: `  rbrowse get /docs/report.pdf
  rbrowse get /docs/report.pdf -o - | less
  rbrowse get /photos/a.jpg /photos/b.jpg -o photos.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), env, args, outPath, force)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Local file to write, or - for stdout")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing local file")

	return cmd
}

// downloadTarget returns the local file name for a download of remotePaths.
func downloadTarget(remotePaths []string, outPath string) string {
	if outPath != "" {
		return outPath
	}
	if len(remotePaths) > 1 {
		return defaultArchiveName
	}
	name := path.Base(listing.NormalizePath(remotePaths[0]))
	if name == "/" || name == "." {
		return defaultArchiveName
	}
	return name
}

func runGet(ctx context.Context, env *cliEnv, remotePaths []string, outPath string, force bool) (err error) {
	server := env.serverURL("")
	client, err := env.transferClient(ctx, server)
	if err != nil {
		return err
	}

	target := downloadTarget(remotePaths, outPath)
	var w io.Writer = os.Stdout
	if target != "-" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if !force {
			flags |= os.O_EXCL
		}
		f, openErr := os.OpenFile(target, flags, 0o644)
		if openErr != nil {
			if os.IsExist(openErr) {
				return clierrors.New(clierrors.ExitGeneral, fmt.Sprintf("%s already exists", target)).
					WithHint("Pass --force to overwrite it or -o to pick another name")
			}
			return openErr
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(target)
			}
		}()
		w = f
	}

	label := remotePaths[0]
	if len(remotePaths) > 1 {
		label = fmt.Sprintf("%d files", len(remotePaths))
	}
	spin := env.out.Spinner("Downloading " + label)
	if target != "-" {
		spin.Start()
	}

	var n int64
	if len(remotePaths) == 1 {
		n, err = client.Download(ctx, remotePaths[0], w)
	} else {
		n, err = client.DownloadMany(ctx, remotePaths, w)
	}
	if err != nil {
		spin.Stop()
		return transferError("Download", server, err)
	}
	if target != "-" {
		spin.StopWithSuccess(fmt.Sprintf("Saved %s (%s)", target, fsutil.FormatSize(n)))
	}
	return nil
}
