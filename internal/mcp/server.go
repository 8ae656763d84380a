// Package mcp exposes plan generation as Model Context Protocol tools.
//
// Tools:
//
//	generate_plan    goal + time_horizon to a structured plan
//	summarize_tasks  filter, sort and count a task list
//	planner_status   whether a model API key is configured
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/fyrsmithlabs/planner/internal/planner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Generator produces plans.
type Generator interface {
	Generate(ctx context.Context, req plan.GenerateRequest) (*planner.Result, error)
	HasModel() bool
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name reported to clients (default "planner").
	Name    string
	Version string
	Logger  *logging.Logger
	Metrics *Metrics
}

// Server serves planner tools over MCP.
type Server struct {
	mcp       *mcp.Server
	generator Generator
	metrics   *Metrics
	logger    *logging.Logger
}

// NewServer creates a server and registers its tools.
func NewServer(cfg *Config, gen Generator) (*Server, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	name := cfg.Name
	if name == "" {
		name = "planner"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(logger.Underlying())
	}

	s := &Server{
		mcp:       mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		generator: gen,
		metrics:   metrics,
		logger:    logger.Named("mcp"),
	}
	s.registerTools()
	return s, nil
}

// Run serves on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves a single session on t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
