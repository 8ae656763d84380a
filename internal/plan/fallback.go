package plan

import (
	"fmt"
	"time"
)

// Descriptions used when the plan does not come from the model.
const (
	DefaultDescriptionFormat = "A structured plan to achieve: %s"
	ErrorFallbackDescription = "A structured plan to achieve your goal (generated as fallback)"
)

type taskTemplate struct {
	title    string
	priority Priority
	emoji    string
	notes    string
}

var fallbackTemplates = []taskTemplate{
	{"Research and understand %s", PriorityHigh, "🔍", "Start with basic research and understanding"},
	{"Create a detailed action plan", PriorityHigh, "📋", "Break down into smaller, manageable steps"},
	{"Begin implementation", PriorityMedium, "🚀", "Start with the first actionable task"},
	{"Monitor and adjust progress", PriorityMedium, "📊", "Check progress and make adjustments as needed"},
	{"Complete and review results", PriorityLow, "✅", "Final review and cleanup of the project"},
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// FallbackTasks returns template tasks for goal. A Today horizon yields three
// tasks all due "Today"; any other horizon yields five tasks due Monday
// through Friday.
func FallbackTasks(goal string, horizon TimeHorizon, now time.Time) []Task {
	count := len(fallbackTemplates)
	days := weekdays
	if horizon == HorizonToday {
		count = 3
		days = []string{string(HorizonToday)}
	}

	stamp := now.UnixMilli()
	tasks := make([]Task, 0, count)
	for i := 0; i < count; i++ {
		tpl := fallbackTemplates[i]
		title := tpl.title
		if i == 0 {
			title = fmt.Sprintf(tpl.title, goal)
		}
		tasks = append(tasks, Task{
			ID:       fmt.Sprintf("task-%d-%d", stamp, i+1),
			Title:    title,
			DueDate:  days[min(i, len(days)-1)],
			Priority: tpl.priority,
			Emoji:    tpl.emoji,
			Notes:    tpl.notes,
		})
	}
	return tasks
}

// FallbackPlan builds a template plan titled with the goal. An empty
// description uses DefaultDescriptionFormat.
func FallbackPlan(goal string, horizon TimeHorizon, description string, now time.Time) StructuredPlan {
	if description == "" {
		description = fmt.Sprintf(DefaultDescriptionFormat, goal)
	}
	return StructuredPlan{
		Title:       goal,
		Description: description,
		Tasks:       FallbackTasks(goal, horizon, now),
		TimeHorizon: horizon,
	}
}
