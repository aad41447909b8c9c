// Package main is the entry point for the rbrowse CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
	"github.com/kk-code-lab/rbrowse/internal/observability"
	"github.com/kk-code-lab/rbrowse/internal/output"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Set UTF-8 as fallback encoding so non-ASCII names display on
	// terminals with an unknown charset.
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)

	out := output.Default()
	if err := newRootCmd(out).Execute(); err != nil {
		return handleError(out, err)
	}
	return 0
}

// handleError prints err and returns the exit code it carries.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		out.Failure("%s", cliErr.Message)
		if cliErr.Cause != nil {
			out.Muted("  %v", cliErr.Cause)
		}
		if cliErr.Hint != "" {
			out.Info("%s", cliErr.Hint)
		}
		return cliErr.Code
	}

	errStr := err.Error()
	if strings.HasPrefix(errStr, "unknown command") {
		out.Failure("%s", errStr)
		if !strings.Contains(errStr, "--help") {
			out.Info("Run 'rbrowse --help' for usage")
		}
		return clierrors.ExitUsage
	}

	out.Failure("%s", errStr)
	return clierrors.ExitCode(err)
}

func newRootCmd(out *output.Writer) *cobra.Command {
	env := &cliEnv{out: out}
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "rbrowse [server-url]",
		Short: "Browse a remote file share from the terminal",
		Long: `rbrowse connects to a file-sharing server over its duplex /connect
channel and shows the remote directory tree in a full-screen browser with
category filters, search, sorting and previews.

Scripting commands share the same session core:
  rbrowse ls /docs        List a remote directory
  rbrowse get /docs/a.pdf Download files
  rbrowse put ./photo.png Upload files (when the server allows it)
  rbrowse discover        Find servers on the local network`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				out.SetNoColor(true)
			}
			if err := env.load(cmd); err != nil {
				return err
			}

			logger, cleanup, err := observability.NewLogger(&observability.Config{
				Level:          env.cfg.LogLevel(),
				Format:         env.cfg.LogFormat(),
				LogFile:        env.cfg.LogFile(),
				StderrMode:     env.cfg.LogStderr(),
				InteractiveTTY: out.Terminal().IsTTY && cmd == cmd.Root(),
				CommandPath:    cmd.CommandPath(),
				Version:        version,
			})
			if err != nil {
				return &clierrors.CLIError{
					Message: fmt.Sprintf("Invalid logging configuration: %v", err),
					Hint:    "Use --log-level (error|warn|info|debug) and --log-stderr (auto|on|off)",
					Code:    clierrors.ExitUsage,
				}
			}
			slog.SetDefault(logger)
			env.logger = logger
			env.cleanup = cleanup

			ctx := out.WithContext(cmd.Context())
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowser(cmd, env, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&env.configFile, "config", "c", "", "Config file (default <user config dir>/rbrowse/config.toml)")
	flags.StringP("server", "s", "", "Server URL (host:port or http://host:port)")
	flags.String("log-level", "", "Log level: error, warn, info, debug")
	flags.String("log-format", "", "Log format: json, text")
	flags.String("log-file", "", "Structured log file path")
	flags.String("log-stderr", "", "Structured logging to stderr: auto, on, off")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&out.Quiet, "quiet", false, "Minimal output")
	rootCmd.Flags().String("path", "", "Directory to open first")

	rootCmd.SuggestionsMinimumDistance = 2
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &clierrors.CLIError{
			Message: err.Error(),
			Hint:    fmt.Sprintf("Run '%s --help' for available flags", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	})
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)

	rootCmd.AddCommand(newLsCmd(env))
	rootCmd.AddCommand(newGetCmd(env))
	rootCmd.AddCommand(newPutCmd(env))
	rootCmd.AddCommand(newIDCmd(env))
	rootCmd.AddCommand(newDiscoverCmd(env))
	rootCmd.AddCommand(newConfigCmd(env))

	return rootCmd
}
