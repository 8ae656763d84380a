package plan

import (
	"errors"
	"strings"
	"time"
)

// Priority ranks a task's importance.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities: High=3, Medium=2, Low=1, anything else 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority parses a priority case-insensitively.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", errors.New(`priority must be one of "High", "Medium" or "Low"`)
}

// TimeHorizon is the window a plan is meant to be completed in.
type TimeHorizon string

const (
	HorizonToday    TimeHorizon = "Today"
	HorizonThisWeek TimeHorizon = "This Week"
)

// Valid reports whether h is a supported horizon.
func (h TimeHorizon) Valid() bool {
	return h == HorizonToday || h == HorizonThisWeek
}

// Task is a single actionable checklist item.
type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	DueDate   string   `json:"dueDate"`
	Priority  Priority `json:"priority"`
	Notes     string   `json:"notes,omitempty"`
	Emoji     string   `json:"emoji,omitempty"`
	Completed bool     `json:"completed"`
}

// StructuredPlan is the plan shape returned by the proxy.
type StructuredPlan struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Tasks       []Task      `json:"tasks"`
	TimeHorizon TimeHorizon `json:"timeHorizon"`
}

// Plan is a generated plan as kept by the client-side store.
type Plan struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Tasks          []Task      `json:"tasks"`
	TimeHorizon    TimeHorizon `json:"timeHorizon"`
	CreatedAt      time.Time   `json:"createdAt"`
	CompletedTasks int         `json:"completedTasks"`
	TotalTasks     int         `json:"totalTasks"`
}

// Clone returns a deep copy of p.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Tasks = append([]Task(nil), p.Tasks...)
	return &c
}

// RecountCompleted recomputes CompletedTasks and TotalTasks from Tasks.
func (p *Plan) RecountCompleted() {
	n := 0
	for _, t := range p.Tasks {
		if t.Completed {
			n++
		}
	}
	p.CompletedTasks = n
	p.TotalTasks = len(p.Tasks)
}

// Envelope wraps every proxy response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Health is the proxy's health report.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	HasAPIKey bool   `json:"hasApiKey"`
}
