package planner

import (
	"testing"

	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_Today(t *testing.T) {
	p := BuildPrompt("Clean the garage", plan.HorizonToday)

	assert.Contains(t, p, `GOAL: "Clean the garage"`)
	assert.Contains(t, p, "TIME HORIZON: Today (within the next 24 hours)")
	assert.Contains(t, p, "urgent and immediate")
	assert.Contains(t, p, "Generate exactly 3-4 specific, actionable tasks")
	assert.Contains(t, p, `"dueDate": "Today"`)
	assert.Contains(t, p, `"timeHorizon": "Today"`)
	assert.Contains(t, p, "PRIORITY GUIDELINES:")
	assert.Contains(t, p, "EMOJI SUGGESTIONS: 🔍📋🚀📊✅💡🎯📝🔧📱💰🎨📈🔒📦")
	assert.NotContains(t, p, "over the next 7 days")
}

func TestBuildPrompt_ThisWeek(t *testing.T) {
	p := BuildPrompt("Prepare a conference talk", plan.HorizonThisWeek)

	assert.Contains(t, p, "TIME HORIZON: This Week (over the next 7 days)")
	assert.Contains(t, p, "well-planned and achievable")
	assert.Contains(t, p, "achievable over the next 7 days")
	assert.Contains(t, p, "Generate exactly 5-6 specific, actionable tasks")
	assert.Contains(t, p, `"dueDate": "Monday"`)
	assert.Contains(t, p, `"timeHorizon": "This Week"`)
	assert.Contains(t, p, "RESPONSE FORMAT (return ONLY valid JSON):")
}

func TestBuildPrompt_GoalVerbatim(t *testing.T) {
	p := BuildPrompt("say \"hi\"\nthen leave", plan.HorizonToday)
	assert.Contains(t, p, "GOAL: \"say \"hi\"\nthen leave\"\n")
	assert.NotContains(t, p, `\"hi\"`)
	assert.NotContains(t, p, `\n`)
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, SystemPrompt, "valid JSON only")
}
