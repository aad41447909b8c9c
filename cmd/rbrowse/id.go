package main

import (
	"github.com/spf13/cobra"

	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
)

func newIDCmd(env *cliEnv) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "id",
		Short: "Show the visitor identifier sent to servers",
		Long: `Show the visitor identifier sent in every handshake. It is created on
first use and kept in the configured identity backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := env.identity()
			if err != nil {
				return err
			}
			id, err := provider.VisitorID(cmd.Context())
			if err != nil {
				return clierrors.Wrap(clierrors.ExitConfig, "Could not resolve visitor id", err).
					WithHint("Set identity.backend to file if no keyring is available")
			}
			if jsonOut {
				return env.out.PrintJSON(map[string]string{"visitor_id": id, "backend": provider.Source()})
			}
			env.out.Println(id)
			env.out.Muted("stored in %s", provider.Source())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
