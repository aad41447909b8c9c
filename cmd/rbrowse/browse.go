package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apppkg "github.com/kk-code-lab/rbrowse/internal/app"
	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/output"
	"github.com/kk-code-lab/rbrowse/internal/session"
)

// runBrowser starts the full-screen browser.
func runBrowser(cmd *cobra.Command, env *cliEnv, args []string) error {
	if !output.IsInteractive() {
		return clierrors.NotATerminal()
	}

	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	server := env.serverURL(arg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := env.transferClient(ctx, server)
	if err != nil {
		return err
	}
	provider, err := env.identity()
	if err != nil {
		return err
	}
	delay, err := env.cfg.ReconnectDelay()
	if err != nil {
		return clierrors.Wrap(clierrors.ExitConfig, "Invalid configuration", err)
	}

	startPath := env.cfg.StartPath()
	if p, _ := cmd.Flags().GetString("path"); p != "" {
		startPath = listing.NormalizePath(p)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	app, err := apppkg.NewApplication(apppkg.Config{
		Session: session.Options{
			URL:            client.ConnectURL(),
			Dialer:         session.WebSocketDialer{},
			Identity:       provider,
			ReconnectDelay: delay,
			StartPath:      startPath,
			Logger:         env.logger,
			Metrics:        env.metrics,
		},
		Transfer:    client,
		Metrics:     env.metrics,
		Logger:      env.logger,
		DownloadDir: cwd,
	})
	if err != nil {
		return clierrors.Wrap(clierrors.ExitGeneral, "Could not start the terminal UI", err)
	}
	defer func() {
		_ = app.Close()
	}()

	env.logger.Info("browser started", "server", client.Base(), "path", startPath)
	return app.Run(ctx)
}
