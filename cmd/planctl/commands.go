package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fyrsmithlabs/planner/internal/events"
	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/spf13/cobra"
)

var errNoCurrentPlan = errors.New("no current plan (run 'planctl use <plan-id>' or generate one)")

// parseHorizon accepts the wire values and the short forms "today" and "week".
func parseHorizon(s string) (plan.TimeHorizon, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return plan.HorizonToday, nil
	case "week", "this week", "this-week":
		return plan.HorizonThisWeek, nil
	}
	return "", fmt.Errorf("invalid horizon %q (use today or week)", s)
}

// resolvePlan returns the plan named by args[0], or the current plan.
func resolvePlan(s *session, args []string) (*plan.Plan, error) {
	if len(args) > 0 {
		return s.store.Plan(args[0])
	}
	cur := s.store.Snapshot().CurrentPlan()
	if cur == nil {
		return nil, errNoCurrentPlan
	}
	return cur, nil
}

func newGenerateCmd(opts *options) *cobra.Command {
	var horizon string
	cmd := &cobra.Command{
		Use:   "generate <goal>",
		Short: "Generate a plan for a goal and make it current",
		Example: `  planctl generate "Prepare for the job interview"
  planctl generate "Launch the newsletter" --horizon week`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHorizon(horizon)
			if err != nil {
				return err
			}
			goal := strings.Join(args, " ")
			return withSession(cmd, opts, func(ctx context.Context, s *session, out io.Writer) error {
				p, err := s.store.GeneratePlan(ctx, goal, h)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(out, p)
				}
				return writePlan(out, p)
			})
		},
	}
	cmd.Flags().StringVar(&horizon, "horizon", "today", "time horizon: today or week")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "history"},
		Short:   "List saved plans, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(_ context.Context, s *session, out io.Writer) error {
				st := s.store.Snapshot()
				if opts.jsonOut {
					return writeJSON(out, st.Plans)
				}
				return writePlans(out, st.Plans, st.CurrentPlanID)
			})
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [plan-id]",
		Short: "Show a plan (default: the current plan)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(_ context.Context, s *session, out io.Writer) error {
				p, err := resolvePlan(s, args)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(out, p)
				}
				return writePlan(out, p)
			})
		},
	}
}

func newUseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "use <plan-id>",
		Short: "Make a saved plan current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session, out io.Writer) error {
				if err := s.store.SetCurrentPlan(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Current plan: %s\n", args[0])
				return nil
			})
		},
	}
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Deselect the current plan without deleting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session, out io.Writer) error {
				if err := s.store.ClearCurrentPlan(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "Current plan cleared")
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <plan-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved plan",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session, out io.Writer) error {
				if err := s.store.DeletePlan(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted plan %s\n", args[0])
				return nil
			})
		},
	}
}

// newCompleteCmd builds "complete" or, with completed=false, "reopen".
func newCompleteCmd(opts *options, completed bool) *cobra.Command {
	use, short, verb := "complete <task-id>...", "Mark tasks complete", "Completed"
	if !completed {
		use, short, verb = "reopen <task-id>...", "Mark tasks incomplete", "Reopened"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session, out io.Writer) error {
				for _, id := range args {
					found, err := s.store.UpdateTaskStatus(ctx, id, completed)
					if err != nil {
						return err
					}
					if !found {
						return fmt.Errorf("task %s not found", id)
					}
					fmt.Fprintf(out, "%s %s\n", verb, id)
				}
				return nil
			})
		},
	}
}

func newTasksCmd(opts *options) *cobra.Command {
	var filter, sortBy string
	cmd := &cobra.Command{
		Use:   "tasks [plan-id]",
		Short: "List a plan's tasks filtered by priority and sorted",
		Example: `  planctl tasks --filter High
  planctl tasks --sort completion`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := plan.ParseFilter(filter)
			if err != nil {
				return err
			}
			sortOpt, err := parseSort(sortBy)
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(_ context.Context, s *session, out io.Writer) error {
				p, err := resolvePlan(s, args)
				if err != nil {
					return err
				}
				tasks := plan.FilterAndSort(p.Tasks, f, sortOpt)
				if opts.jsonOut {
					return writeJSON(out, tasks)
				}
				return writeTasks(out, tasks)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", plan.FilterAll, "priority filter: All, High, Medium or Low")
	cmd.Flags().StringVar(&sortBy, "sort", string(plan.SortPriorityThenDate), "sort: priority, dueDate, completion or priorityThenDate")
	return cmd
}

func parseSort(s string) (plan.SortOption, error) {
	for _, o := range []plan.SortOption{plan.SortPriority, plan.SortDueDate, plan.SortCompletion, plan.SortPriorityThenDate} {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("invalid sort %q", s)
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [plan-id]",
		Short: "Show completion statistics for a plan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(_ context.Context, s *session, out io.Writer) error {
				p, err := resolvePlan(s, args)
				if err != nil {
					return err
				}
				st := plan.Statistics(p.Tasks)
				if opts.jsonOut {
					return writeJSON(out, st)
				}
				return writeStats(out, st)
			})
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check plannerd health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session, out io.Writer) error {
				h, err := s.api.CheckHealth(ctx)
				if err != nil {
					return fmt.Errorf("plannerd at %s: %w", s.api.BaseURL(), err)
				}
				if opts.jsonOut {
					return writeJSON(out, h)
				}
				apiKey := "no (mock plans)"
				if h.HasAPIKey {
					apiKey = "yes"
				}
				fmt.Fprintf(out, "Status:    %s\n", h.Status)
				fmt.Fprintf(out, "Timestamp: %s\n", h.Timestamp)
				fmt.Fprintf(out, "API key:   %s\n", apiKey)
				return nil
			})
		},
	}
}

func newStateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Dump the full client state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session, out io.Writer) error {
				// Connectivity is not persisted; refresh it for the dump.
				if _, err := s.store.CheckAPIHealth(ctx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: health check failed: %v\n", err)
				}
				return writeJSON(out, s.store.Snapshot())
			})
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	var natsURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream plan-generated events from NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if natsURL != "" {
				cfg.Events.NATSURL = natsURL
			}
			if cfg.Events.NATSURL == "" {
				return errors.New("no NATS URL (set events.nats_url or --nats)")
			}

			nc, err := events.Connect(cfg.Events.NATSURL)
			if err != nil {
				return err
			}
			defer nc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return events.Subscribe(ctx, nc, cfg.Events.Subject, func(ev events.PlanGenerated) {
				if opts.jsonOut {
					_ = writeJSON(out, ev)
					return
				}
				writeEvent(out, ev)
			})
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS URL (overrides events.nats_url)")
	return cmd
}
