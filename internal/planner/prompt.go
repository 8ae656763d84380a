package planner

import (
	"fmt"

	"github.com/fyrsmithlabs/planner/internal/plan"
)

// SystemPrompt is sent as the system message on every model call.
const SystemPrompt = "You are an expert productivity coach. Always respond with valid JSON only, no additional text or explanations."

type horizonProfile struct {
	timeContext string
	urgency     string
	taskCount   string
	exampleDue  string
}

func profileFor(h plan.TimeHorizon) horizonProfile {
	if h == plan.HorizonToday {
		return horizonProfile{
			timeContext: "within the next 24 hours",
			urgency:     "urgent and immediate",
			taskCount:   "3-4",
			exampleDue:  "Today",
		}
	}
	return horizonProfile{
		timeContext: "over the next 7 days",
		urgency:     "well-planned and achievable",
		taskCount:   "5-6",
		exampleDue:  "Monday",
	}
}

const promptTemplate = `You are an expert productivity coach and project manager. Create a detailed, actionable plan to help someone achieve their goal.

GOAL: "%[1]s"
TIME HORIZON: %[2]s (%[3]s)

Create a structured plan that is %[4]s. The plan should be realistic and achievable %[3]s.

REQUIREMENTS:
- Generate exactly %[5]s specific, actionable tasks
- Each task should be clear, measurable, and directly contribute to the goal
- Prioritize tasks logically (High priority for critical/foundational tasks)
- Include helpful notes and relevant emojis for each task
- Distribute due dates appropriately across the time horizon
- Make tasks specific to the goal, not generic advice

RESPONSE FORMAT (return ONLY valid JSON):
{
  "title": "Clear, compelling title for the plan",
  "description": "Brief 1-2 sentence description of what this plan will achieve",
  "tasks": [
    {
      "id": "task-1",
      "title": "Specific actionable task 1",
      "dueDate": "%[6]s",
      "priority": "High|Medium|Low",
      "notes": "Helpful context, tips, or sub-steps",
      "emoji": "🔍",
      "completed": false
    }
  ],
  "timeHorizon": "%[2]s"
}

PRIORITY GUIDELINES:
- High: Critical tasks that must be done first or are blocking other tasks
- Medium: Important tasks that support the main goal
- Low: Nice-to-have tasks or final touches

EMOJI SUGGESTIONS: 🔍📋🚀📊✅💡🎯📝🔧📱💰🎨📈🔒📦

Make this plan practical and immediately actionable. Focus on concrete steps rather than abstract concepts.`

// BuildPrompt renders the user prompt for goal and horizon.
func BuildPrompt(goal string, horizon plan.TimeHorizon) string {
	p := profileFor(horizon)
	return fmt.Sprintf(promptTemplate, goal, horizon, p.timeContext, p.urgency, p.taskCount, p.exampleDue)
}
