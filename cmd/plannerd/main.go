// Plannerd is the planner proxy daemon.
//
// It serves POST /plan and GET /health over HTTP, holding the model API key
// so clients never see it. Without a key it answers with template plans.
//
// Usage:
//
//	# Start the HTTP proxy on :8787
//	plannerd serve
//
//	# Serve the same planner as MCP tools on stdio
//	plannerd mcp
//
//	# Configure via environment
//	OPENAI_API_KEY=sk-... SERVER_HTTP_PORT=9000 plannerd serve
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "plannerd",
		Short: "Planner proxy daemon",
		Long: `plannerd turns goals into short prioritized checklists.

It proxies plan requests to a language-model API, validates the
model's answer and falls back to template tasks when the model is
unavailable or misbehaves.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/planner/config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMCPCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "plannerd by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}
