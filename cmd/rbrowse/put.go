package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/transfer"
)

func newPutCmd(env *cliEnv) *cobra.Command {
	var remoteDir string

	cmd := &cobra.Command{
		Use:   "put <local-file>...",
		Short: "Upload files into a remote directory",
		Long: `Upload local files into a remote directory. The server must advertise
uploads in its configuration and the target directory must exist.`,
		Example: `  rbrowse put ./photo.png
  rbrowse put a.pdf b.pdf --dir /docs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(cmd.Context(), env, args, remoteDir)
		},
	}

	cmd.Flags().StringVarP(&remoteDir, "dir", "d", "/", "Remote directory to upload into")

	return cmd
}

func runPut(ctx context.Context, env *cliEnv, localFiles []string, remoteDir string) error {
	server := env.serverURL("")
	client, err := env.transferClient(ctx, server)
	if err != nil {
		return err
	}
	remoteDir = listing.NormalizePath(remoteDir)

	snap, err := fetchSnapshot(ctx, env, client, remoteDir, defaultSnapshotTimeout)
	if err != nil {
		return err
	}
	if !snap.Config.AllowUploads {
		return clierrors.UploadsDisabled(snap.Config.DisplayName())
	}

	files := make([]transfer.UploadFile, 0, len(localFiles))
	for _, name := range localFiles {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.IsDir() {
			return clierrors.New(clierrors.ExitUsage, fmt.Sprintf("%s is a directory", name)).
				WithHint("Upload the files inside it instead")
		}
		files = append(files, transfer.UploadFile{Name: filepath.Base(name), Reader: f})
	}

	spin := env.out.Spinner(fmt.Sprintf("Uploading %d file(s) to %s", len(files), remoteDir))
	spin.Start()
	if err := client.Upload(ctx, remoteDir, files); err != nil {
		spin.Stop()
		return transferError("Upload", server, err)
	}
	spin.StopWithSuccess(fmt.Sprintf("Uploaded %d file(s) to %s", len(files), remoteDir))
	return nil
}
