package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/query"
)

// lsRow is the JSON shape of one listed entry.
type lsRow struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	Size     *int64 `json:"size,omitempty"`
	SizeText string `json:"size_text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Category string `json:"category"`
}

type lsOptions struct {
	category string
	search   string
	desc     bool
	json     bool
	timeout  time.Duration
}

func newLsCmd(env *cliEnv) *cobra.Command {
	opts := lsOptions{}

	cmd := &cobra.Command{
		Use:   "ls [remote-path]",
		Short: "List a remote directory",
		Long: `List a remote directory through the same session the browser uses.
Entries are grouped by category and sorted by name unless a category or
search narrows the view.`,
		Example: `  rbrowse ls
  rbrowse ls /photos --category pictures
  rbrowse ls /docs --search report --desc --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remotePath := "/"
			if len(args) == 1 {
				remotePath = args[0]
			}
			return runLs(cmd, env, remotePath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "all", "Only list one category: all, folders, documents, pictures, videos, music, others")
	cmd.Flags().StringVar(&opts.search, "search", "", "Only list names containing this text")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "Sort names in descending order")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output JSON")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultSnapshotTimeout, "How long to wait for the listing")

	return cmd
}

func runLs(cmd *cobra.Command, env *cliEnv, remotePath string, opts lsOptions) error {
	q, err := buildQuery(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	server := env.serverURL("")
	client, err := env.transferClient(ctx, server)
	if err != nil {
		return err
	}

	spin := env.out.Spinner(fmt.Sprintf("Listing %s on %s", remotePath, client.Base()))
	spin.Start()
	snap, err := fetchSnapshot(ctx, env, client, remotePath, opts.timeout)
	spin.Stop()
	if err != nil {
		return err
	}

	rows := query.DeriveView(snap.Entries, q, snap.Path).Ordered()
	if opts.json {
		out := make([]lsRow, len(rows))
		for i, r := range rows {
			out[i] = lsRow{
				Name:     r.Entry.Name,
				Path:     r.Path,
				IsDir:    r.Entry.IsDir,
				Size:     r.Entry.Size,
				SizeText: r.FormattedSize,
				MimeType: r.Entry.MimeType,
				Category: string(r.Category),
			}
		}
		return env.out.PrintJSON(out)
	}

	table := make([][]string, len(rows))
	for i, r := range rows {
		name := r.Entry.Name
		if r.Entry.IsDir {
			name += "/"
		}
		mime := r.Entry.MimeType
		if mime == "" {
			mime = "-"
		}
		table[i] = []string{name, r.Category.Label(), r.FormattedSize, mime}
	}
	env.out.Muted("%s  %s", snap.Config.DisplayName(), snap.Path)
	env.out.Table([]string{"NAME", "CATEGORY", "SIZE", "TYPE"}, table, "No matching files.")
	return nil
}

func buildQuery(opts lsOptions) (query.ViewQuery, error) {
	q := query.DefaultQuery()
	cat, ok := fsutil.ParseCategory(opts.category)
	if !ok {
		return q, clierrors.New(clierrors.ExitUsage, fmt.Sprintf("Unknown category %q", opts.category)).
			WithHint("Use one of: all, folders, documents, pictures, videos, music, others")
	}
	q.Category = cat
	q.Search = opts.search
	if opts.desc {
		q.Direction = query.Desc
	}
	return q, nil
}
