package plan

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// FilterAll disables priority filtering.
const FilterAll = "All"

// SortOption selects a task ordering.
type SortOption string

const (
	SortPriority         SortOption = "priority"
	SortDueDate          SortOption = "dueDate"
	SortCompletion       SortOption = "completion"
	SortPriorityThenDate SortOption = "priorityThenDate"
)

// ParseFilter accepts "All" or a priority name.
func ParseFilter(s string) (string, error) {
	if s == "" || strings.EqualFold(s, FilterAll) {
		return FilterAll, nil
	}
	p, err := ParsePriority(s)
	if err != nil {
		return "", fmt.Errorf("invalid filter %q: %w", s, err)
	}
	return string(p), nil
}

// FilterByPriority returns tasks whose priority equals filter. "All" (or
// empty) returns the tasks unchanged.
func FilterByPriority(tasks []Task, filter string) []Task {
	if filter == "" || filter == FilterAll {
		return tasks
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if string(t.Priority) == filter {
			out = append(out, t)
		}
	}
	return out
}

// SortByPriority orders High before Medium before Low.
func SortByPriority(tasks []Task) []Task {
	return sortedCopy(tasks, comparePriority)
}

// SortByDueDate orders tasks by due date, earliest first.
func SortByDueDate(tasks []Task) []Task {
	return sortedCopy(tasks, compareDueDate)
}

// SortByCompletion puts incomplete tasks first.
func SortByCompletion(tasks []Task) []Task {
	return sortedCopy(tasks, func(a, b Task) int {
		switch {
		case a.Completed == b.Completed:
			return 0
		case a.Completed:
			return 1
		default:
			return -1
		}
	})
}

// SortByPriorityThenDate orders by priority, then by due date.
func SortByPriorityThenDate(tasks []Task) []Task {
	return sortedCopy(tasks, func(a, b Task) int {
		if c := comparePriority(a, b); c != 0 {
			return c
		}
		return compareDueDate(a, b)
	})
}

// FilterAndSort filters by priority and then sorts. Unknown sort options
// use SortPriorityThenDate.
func FilterAndSort(tasks []Task, filter string, sortBy SortOption) []Task {
	filtered := FilterByPriority(tasks, filter)

	switch sortBy {
	case SortPriority:
		return SortByPriority(filtered)
	case SortDueDate:
		return SortByDueDate(filtered)
	case SortCompletion:
		return SortByCompletion(filtered)
	default:
		return SortByPriorityThenDate(filtered)
	}
}

// Stats summarizes task completion.
type Stats struct {
	CompletedTasks       int `json:"completedTasks"`
	TotalTasks           int `json:"totalTasks"`
	CompletionPercentage int `json:"completionPercentage"`
	IncompleteTasks      int `json:"incompleteTasks"`
}

// Statistics counts completed tasks. The percentage is rounded to the
// nearest integer and is 0 for an empty list.
func Statistics(tasks []Task) Stats {
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	total := len(tasks)

	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(completed) / float64(total) * 100))
	}

	return Stats{
		CompletedTasks:       completed,
		TotalTasks:           total,
		CompletionPercentage: pct,
		IncompleteTasks:      total - completed,
	}
}

func sortedCopy(tasks []Task, cmp func(a, b Task) int) []Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, cmp)
	return out
}

func comparePriority(a, b Task) int {
	return b.Priority.Rank() - a.Priority.Rank()
}

// Due date classes, in sort order.
const (
	dueToday = iota
	dueWeekday
	dueDate
	dueUnknown
)

var weekdayIndex = map[string]int{
	"monday": 1, "tuesday": 2, "wednesday": 3, "thursday": 4,
	"friday": 5, "saturday": 6, "sunday": 7,
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// dueKey maps a free-form due date onto (class, position).
func dueKey(s string) (int, int64) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "today" {
		return dueToday, 0
	}
	if d, ok := weekdayIndex[v]; ok {
		return dueWeekday, int64(d)
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return dueDate, ts.Unix()
		}
	}
	return dueUnknown, 0
}

func compareDueDate(a, b Task) int {
	ca, pa := dueKey(a.DueDate)
	cb, pb := dueKey(b.DueDate)
	if ca != cb {
		return ca - cb
	}
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}
