package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/internal/server"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)
	opts := c.canvasOpts()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts over HTTP",
		Long: `Serve layouts over HTTP.

Endpoints:
  POST   /v1/projects                    allocate a project id
  POST   /v1/projects/{project}/layout   lay out a tree (JSON or 'path:count' lines)
  GET    /v1/projects/{project}/layout   last layout of the project
  POST   /v1/projects/{project}/render   draw a tree, or the last layout (?format=svg|png|pdf|json)
  DELETE /v1/projects/{project}          forget the project's positions
  GET    /healthz                        liveness
  GET    /metrics                        Prometheus metrics

Each project keeps its engine in memory, so successive layouts of a changing
tree stay stable for as long as the server runs, and across restarts through
the cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, opts, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", c.Config.Server.Addr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "keep positions in memory only")
	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "default canvas width")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "default canvas height")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "default deepest level drawn")
	registerDrawFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, opts pipeline.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	server.RegisterHooks()
	srv := server.New(runner, c.Logger, server.Config{Addr: addr, Defaults: opts})

	printInfo("Serving on %s", addr)
	printKeyValue("cache", c.cacheLabel(noCache))
	printKeyValue("canvas", fmt.Sprintf("%.0f×%.0f, depth %d", opts.Width, opts.Height, opts.MaxDepth))
	if noCache {
		printWarning("Positions are kept in memory and lost on restart")
	}
	err = srv.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
