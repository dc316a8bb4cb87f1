package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/legsim/internal/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the solver and spec store over HTTP",
		Long: `Serve the solver and spec store over HTTP.

Endpoints:
  GET    /healthz
  POST   /v1/solve
  POST   /v1/sweep
  POST   /v1/specs
  GET    /v1/specs
  GET    /v1/specs/{id}
  GET    /v1/specs/{id}/graph
  DELETE /v1/specs/{id}

The server stops gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	st, err := openStore(ctx, runner.Config)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(context.Background())

	if addr == "" {
		addr = runner.Config.Server.Addr
	}
	printInfo("Serving on %s", addr)
	return server.New(runner, st, c.Logger).ListenAndServe(ctx, addr)
}
