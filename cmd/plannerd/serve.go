package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/planner/internal/config"
	phttp "github.com/fyrsmithlabs/planner/internal/http"
	"github.com/fyrsmithlabs/planner/internal/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		port    int
		withMCP bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy",
		Long: `Run the HTTP proxy until interrupted.

Examples:
  # Start with defaults (port 8787, mock plans without an API key)
  plannerd serve

  # Also expose MCP tools on stdio
  plannerd serve --mcp-stdio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithFile(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, withMCP)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides server.http_port)")
	cmd.Flags().BoolVar(&withMCP, "mcp-stdio", false, "also serve MCP tools on stdin/stdout")
	return cmd
}

// runServe starts the HTTP server, and optionally the MCP server, and
// blocks until ctx is cancelled or either fails.
func runServe(ctx context.Context, cfg *config.Config, withMCP bool) error {
	a, err := newApp(ctx, cfg, withMCP)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	a.logger.Info(ctx, "starting plannerd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("has_api_key", a.service.HasModel()),
		zap.Bool("mcp_stdio", withMCP),
	)

	srv, err := phttp.NewServer(a.service, a.logger, phttp.ConfigFrom(cfg.Server),
		phttp.WithMetricsHandler(promhttp.Handler()),
		phttp.WithHTTPMetrics(phttp.NewHTTPMetrics(a.logger.Underlying())),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	var ms *mcp.Server
	if withMCP {
		if ms, err = mcp.NewServer(&mcp.Config{Version: version, Logger: a.logger}, a.service); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if ms != nil {
		g.Go(func() error {
			return ms.Run(gctx)
		})
	}

	err = g.Wait()
	a.logger.Info(ctx, "plannerd stopped")
	return err
}
