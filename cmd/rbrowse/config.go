package main

import (
	"github.com/spf13/cobra"

	"github.com/kk-code-lab/rbrowse/internal/config"
	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
)

func newConfigCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Write a starter config file or show the effective settings.`,
	}

	cmd.AddCommand(newConfigInitCmd(env))
	cmd.AddCommand(newConfigShowCmd(env))

	return cmd
}

func newConfigInitCmd(env *cliEnv) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Write the default configuration file",
		Example: `  rbrowse config init --force`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := env.cfg.File()
			if err := config.WriteDefaults(file, force); err != nil {
				return clierrors.ConfigFailed("write config file", err)
			}
			env.out.Success("Wrote %s", file)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing file")
	return cmd
}

func newConfigShowCmd(env *cliEnv) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show settings after merging defaults, the config file, RBROWSE_* variables and flags.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := env.cfg.Settings()
			if jsonOut {
				return env.out.PrintJSON(settings)
			}
			data, err := config.Encode(settings)
			if err != nil {
				return clierrors.ConfigFailed("encode config", err)
			}
			env.out.Muted("# %s", env.cfg.File())
			env.out.Println(string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
