package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kk-code-lab/rbrowse/internal/config"
	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
	"github.com/kk-code-lab/rbrowse/internal/identity"
	"github.com/kk-code-lab/rbrowse/internal/metrics"
	"github.com/kk-code-lab/rbrowse/internal/output"
	"github.com/kk-code-lab/rbrowse/internal/paths"
	"github.com/kk-code-lab/rbrowse/internal/transfer"
)

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"server":       config.KeyServerURL,
	"log-level":    config.KeyLogLevel,
	"log-format":   config.KeyLogFormat,
	"log-file":     config.KeyLogFile,
	"log-stderr":   config.KeyLogStderr,
	"metrics-addr": config.KeyMetricsAddr,
}

// cliEnv carries what every command needs once flags are parsed.
type cliEnv struct {
	out        *output.Writer
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
	cleanup    func() error

	metrics     *metrics.Metrics
	stopMetrics context.CancelFunc
}

func (e *cliEnv) load(cmd *cobra.Command) error {
	cfg, err := config.Load(e.configFile)
	if err != nil {
		return clierrors.ConfigFailed("load configuration", err)
	}
	for name, key := range flagKeys {
		if err := cfg.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return clierrors.ConfigFailed("bind --"+name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return clierrors.Wrap(clierrors.ExitConfig, "Invalid configuration", err).
			WithHint("Run 'rbrowse config show' to inspect the effective settings")
	}
	e.cfg = cfg
	return nil
}

func (e *cliEnv) close() error {
	if e.stopMetrics != nil {
		e.stopMetrics()
	}
	if e.cleanup != nil {
		return e.cleanup()
	}
	return nil
}

// serverURL picks the positional argument over the configured server.
func (e *cliEnv) serverURL(arg string) string {
	if arg != "" {
		return arg
	}
	return e.cfg.ServerURL()
}

// startMetrics creates the collectors and, when metrics.addr is set, serves
// them until the command returns.
func (e *cliEnv) startMetrics(ctx context.Context) *metrics.Metrics {
	if e.metrics != nil {
		return e.metrics
	}
	reg := prometheus.NewRegistry()
	e.metrics = metrics.New(reg)

	addr := e.cfg.MetricsAddr()
	if addr == "" {
		return e.metrics
	}
	ctx, cancel := context.WithCancel(ctx)
	e.stopMetrics = cancel
	go func() {
		if err := metrics.Serve(ctx, addr, reg); err != nil {
			e.logger.Warn("metrics endpoint stopped", "addr", addr, "error", err)
		}
	}()
	e.logger.Info("serving metrics", "addr", addr)
	return e.metrics
}

func (e *cliEnv) transferClient(ctx context.Context, rawURL string) (*transfer.Client, error) {
	client, err := transfer.New(transfer.Config{
		BaseURL: rawURL,
		Metrics: e.startMetrics(ctx),
		Logger:  e.logger,
	})
	if err != nil {
		return nil, clierrors.InvalidServerURL(rawURL, err)
	}
	return client, nil
}

func (e *cliEnv) identity() (*identity.Persistent, error) {
	file, err := paths.VisitorIDFile()
	if err != nil {
		return nil, clierrors.ConfigFailed("resolve visitor id file", err)
	}
	provider, err := identity.New(e.cfg.IdentityBackend(), file)
	if err != nil {
		return nil, clierrors.Wrap(clierrors.ExitConfig, "Invalid identity backend", err)
	}
	return provider, nil
}

// transferError maps a transfer failure onto a CLI error.
func transferError(op, server string, err error) error {
	var statusErr *transfer.StatusError
	if errors.As(err, &statusErr) {
		return clierrors.RequestFailed(op, statusErr.Code, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return clierrors.ServerUnreachable(server, err)
}
