package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kk-code-lab/rbrowse/internal/discovery"
	clierrors "github.com/kk-code-lab/rbrowse/internal/errors"
)

type discoveredServer struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
	URL  string `json:"url"`
}

func newDiscoverCmd(env *cliEnv) *cobra.Command {
	var timeout time.Duration
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find file-sharing servers on the local network",
		Long:  `Browse mDNS for servers announcing the ` + discovery.ServiceName + ` service.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := discovery.NewResolver()
			if err != nil {
				return clierrors.Wrap(clierrors.ExitNetwork, "mDNS is not available", err)
			}

			spin := env.out.Spinner("Looking for servers")
			spin.Start()
			servers, err := discovery.Browse(cmd.Context(), resolver, timeout)
			spin.Stop()
			if err != nil {
				return clierrors.Wrap(clierrors.ExitNetwork, "Discovery failed", err)
			}
			if len(servers) == 0 {
				return clierrors.NoServersFound()
			}

			if jsonOut {
				out := make([]discoveredServer, len(servers))
				for i, s := range servers {
					out[i] = discoveredServer{Name: s.Name, Host: s.Host, Port: s.Port, URL: s.URL()}
				}
				return env.out.PrintJSON(out)
			}
			rows := make([][]string, len(servers))
			for i, s := range servers {
				rows[i] = []string{s.Name, s.Host, strconv.Itoa(s.Port), s.URL()}
			}
			env.out.Table([]string{"NAME", "HOST", "PORT", "URL"}, rows, "")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultTimeout, "How long to listen for announcements")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
