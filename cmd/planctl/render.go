package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fyrsmithlabs/planner/internal/events"
	"github.com/fyrsmithlabs/planner/internal/plan"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func writePlan(w io.Writer, p *plan.Plan) error {
	fmt.Fprintf(w, "%s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(w, "%s\n", p.Description)
	}
	fmt.Fprintf(w, "%s · %d/%d done · %s\n\n", p.TimeHorizon, p.CompletedTasks, p.TotalTasks, p.ID)
	return writeTasks(w, p.Tasks)
}

func writeTasks(w io.Writer, tasks []plan.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range tasks {
		title := t.Title
		if t.Emoji != "" {
			title = t.Emoji + " " + title
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", checkbox(t.Completed), title, t.Priority, t.DueDate, t.ID)
		if t.Notes != "" {
			fmt.Fprintf(tw, "\t  %s\t\t\t\n", t.Notes)
		}
	}
	return tw.Flush()
}

func writePlans(w io.Writer, plans []*plan.Plan, currentID string) error {
	if len(plans) == 0 {
		_, err := fmt.Fprintln(w, "No plans yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tHORIZON\tDONE\tCREATED")
	for _, p := range plans {
		marker := ""
		if p.ID == currentID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			marker, p.ID, p.Title, p.TimeHorizon, p.CompletedTasks, p.TotalTasks,
			p.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func writeStats(w io.Writer, st plan.Stats) error {
	_, err := fmt.Fprintf(w, "%d/%d tasks complete (%d%%), %d remaining\n",
		st.CompletedTasks, st.TotalTasks, st.CompletionPercentage, st.IncompleteTasks)
	return err
}

func writeEvent(w io.Writer, ev events.PlanGenerated) {
	redacted := ""
	if ev.Redacted {
		redacted = " (goal redacted)"
	}
	fmt.Fprintf(w, "%s  %-8s  %q  %s, %d tasks%s\n",
		ev.GeneratedAt.Local().Format(time.TimeOnly), ev.Source, ev.Title, ev.TimeHorizon, ev.TaskCount, redacted)
}
