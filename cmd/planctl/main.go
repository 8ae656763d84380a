// Planctl manages plans against a running plannerd.
//
// Generated plans are kept in a local SQLite database so they can be
// reviewed and checked off later.
//
// Usage:
//
//	planctl generate "Clean the garage" --horizon today
//	planctl show
//	planctl complete <task-id>
//	planctl tasks --filter High --sort dueDate
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fyrsmithlabs/planner/internal/client"
	"github.com/fyrsmithlabs/planner/internal/config"
	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/store"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	serverURL  string
	dbPath     string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "planctl",
		Short: "Generate and track plans with plannerd",
		Long: `planctl asks a plannerd proxy for plans and keeps them in a local
database so tasks can be checked off over time.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/planner/config.yaml)")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "plannerd URL (overrides client.server_url)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "plan database path (overrides store.path)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		newGenerateCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newUseCmd(opts),
		newClearCmd(opts),
		newDeleteCmd(opts),
		newCompleteCmd(opts, true),
		newCompleteCmd(opts, false),
		newTasksCmd(opts),
		newStatsCmd(opts),
		newHealthCmd(opts),
		newStateCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "planctl %s\n", version)
		},
	}
}

// session is an open store plus what is needed to close it.
type session struct {
	cfg    *config.Config
	store  *store.Store
	db     *store.SQLitePersister
	api    *client.Client
	logger *logging.Logger
}

func (s *session) Close() error {
	_ = s.logger.Sync()
	return s.db.Close()
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.serverURL != "" {
		cfg.Client.ServerURL = opts.serverURL
	}
	if opts.dbPath != "" {
		cfg.Store.Path = opts.dbPath
	}
	return cfg, nil
}

// newLogger logs warnings and above to stderr so stdout stays clean.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	obs := cfg.Observability
	if obs.LogLevel == "info" || obs.LogLevel == "" {
		obs.LogLevel = "warn"
	}
	obs.LogFormat = "console"
	lc, err := logging.FromObservability(obs, false)
	if err != nil {
		return nil, err
	}
	lc.Output.Stderr = true
	return logging.NewLogger(lc, nil)
}

func openSession(ctx context.Context, opts *options) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	api := client.New(cfg.Client.ServerURL, client.WithTimeout(cfg.Client.Timeout.Duration()))
	st, err := store.Open(ctx, store.Options{API: api, Persister: db, Logger: logger})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &session{cfg: cfg, store: st, db: db, api: api, logger: logger}, nil
}

// withSession opens the store for the duration of fn.
func withSession(cmd *cobra.Command, opts *options, fn func(ctx context.Context, s *session, out io.Writer) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s, cmd.OutOrStdout())
}
