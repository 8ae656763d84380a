package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/planner/internal/config"
	"github.com/fyrsmithlabs/planner/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve planner tools over MCP on stdio",
		Long: `Serve generate_plan, summarize_tasks and planner_status as MCP tools
on stdin/stdout. Logs go to stderr.

Example client configuration:
  {"command": "plannerd", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithFile(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMCP(ctx, cfg)
		},
	}
}

func runMCP(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	srv, err := mcp.NewServer(&mcp.Config{Version: version, Logger: a.logger}, a.service)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
