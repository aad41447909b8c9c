package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/protocol"
	"github.com/kk-code-lab/rbrowse/internal/session"
	"github.com/kk-code-lab/rbrowse/internal/transfer"
)

const defaultSnapshotTimeout = 15 * time.Second

// snapshot is one listing fetched over a short-lived session.
type snapshot struct {
	Config    protocol.SessionConfig
	Path      string
	Entries   []fsutil.Entry
	VisitorID string
}

// fetchSnapshot opens a session, waits for the server configuration and the
// listing of remotePath, then closes the session. The first connection
// failure is reported instead of retried.
func fetchSnapshot(ctx context.Context, env *cliEnv, client *transfer.Client, remotePath string, timeout time.Duration) (*snapshot, error) {
	provider, err := env.identity()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	remotePath = listing.NormalizePath(remotePath)

	events := make(chan session.Event, 16)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mgr := session.New(session.Options{
		URL:       client.ConnectURL(),
		Dialer:    session.WebSocketDialer{},
		Identity:  provider,
		StartPath: remotePath,
		Logger:    env.logger,
		Metrics:   env.metrics,
		OnEvent: func(ev session.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		},
	})
	defer func() { _ = mgr.Close() }()
	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}

	snap := &snapshot{Path: remotePath}
	var haveConfig, haveListing bool
	for !haveConfig || !haveListing {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case session.VisitorResolved:
				snap.VisitorID = e.ID
			case session.StateChanged:
				if e.State == session.Errored || (e.State == session.Disconnected && e.Err != nil) {
					return nil, clierrors.ServerUnreachable(client.Base(), e.Err)
				}
			case session.DecodeFailed:
				if !e.Unmatched && e.RequestedPath == remotePath {
					return nil, fmt.Errorf("listing %s: %w", remotePath, e.Err)
				}
			case session.FrameReceived:
				answered := !e.Unmatched && listing.NormalizePath(e.RequestedPath) == remotePath
				switch f := e.Frame.(type) {
				case protocol.Config:
					snap.Config = f.Config
					haveConfig = true
				case protocol.Files:
					if answered {
						snap.Entries = f.Entries
						haveListing = true
					}
				case protocol.Info:
					if answered && f.IsError() {
						return nil, clierrors.Wrap(clierrors.ExitGeneral,
							fmt.Sprintf("Server refused to list %s", remotePath), errors.New(f.Text))
					}
				}
			}
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, clierrors.ConnectTimedOut(timeout.String())
			}
			return nil, ctx.Err()
		}
	}
	return snap, nil
}
