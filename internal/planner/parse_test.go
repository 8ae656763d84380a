package planner

import (
	"testing"

	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weekReq = plan.GenerateRequest{Goal: "Run a 10k", TimeHorizon: plan.HorizonThisWeek}

func TestParseResponse_Valid(t *testing.T) {
	content := `{
	  "title": "10k Prep",
	  "description": "Get race ready",
	  "timeHorizon": "This Week",
	  "tasks": [
	    {"id": "task-1", "title": "Buy shoes", "dueDate": "Monday", "priority": "High", "notes": "Go to a running store", "emoji": "👟", "completed": false},
	    {"id": 2, "title": "Easy run", "dueDate": "Tuesday", "priority": "Medium", "emoji": "🏃"}
	  ]
	}`

	got, err := ParseResponse(content, weekReq)
	require.NoError(t, err)
	assert.Zero(t, got.Dropped)

	want := plan.StructuredPlan{
		Title:       "10k Prep",
		Description: "Get race ready",
		TimeHorizon: plan.HorizonThisWeek,
		Tasks: []plan.Task{
			{ID: "task-1", Title: "Buy shoes", DueDate: "Monday", Priority: plan.PriorityHigh, Notes: "Go to a running store", Emoji: "👟"},
			{ID: "2", Title: "Easy run", DueDate: "Tuesday", Priority: plan.PriorityMedium, Emoji: "🏃"},
		},
	}
	if diff := cmp.Diff(want, got.Plan); diff != "" {
		t.Errorf("ParseResponse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponse_CodeFence(t *testing.T) {
	content := "```json\n{\"title\":\"T\",\"tasks\":[{\"id\":\"1\",\"title\":\"a\",\"dueDate\":\"Today\",\"priority\":\"Low\",\"emoji\":\"✅\"}]}\n```"

	got, err := ParseResponse(content, weekReq)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Plan.Title)
	require.Len(t, got.Plan.Tasks, 1)
}

func TestParseResponse_Defaults(t *testing.T) {
	const task = `{"id":"1","title":"a","dueDate":"Monday","priority":"High","emoji":"🚀"}`
	tests := []struct {
		name    string
		content string
	}{
		{"unknown horizon", `{"title":"T","timeHorizon":"Next Month","tasks":[` + task + `]}`},
		{"numeric horizon", `{"title":"T","timeHorizon":7,"tasks":[` + task + `]}`},
		{"numeric description", `{"title":"T","description":42,"tasks":[` + task + `]}`},
		{"object description", `{"title":"T","description":{"text":"x"},"timeHorizon":null,"tasks":[` + task + `]}`},
		{"empty description", `{"title":"T","description":"","tasks":[` + task + `]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.content, weekReq)
			require.NoError(t, err)
			assert.Equal(t, "T", got.Plan.Title)
			assert.Equal(t, "A structured plan to achieve: Run a 10k", got.Plan.Description)
			assert.Equal(t, plan.HorizonThisWeek, got.Plan.TimeHorizon)
			assert.Len(t, got.Plan.Tasks, 1)
		})
	}
}

func TestParseResponse_DropsInvalidTasks(t *testing.T) {
	content := `{"title":"T","tasks":[
	  {"id":"1","title":"ok","dueDate":"Monday","priority":"High","emoji":"🚀"},
	  {"id":"2","title":"no emoji","dueDate":"Monday","priority":"High"},
	  {"id":"3","title":"","dueDate":"Monday","priority":"High","emoji":"🚀"},
	  {"id":"4","title":"bad priority","dueDate":"Monday","priority":"Urgent","emoji":"🚀"},
	  {"title":"no id","dueDate":"Monday","priority":"Low","emoji":"🚀"},
	  {"id":0,"title":"zero id","dueDate":"Monday","priority":"Low","emoji":"🚀"},
	  "not an object"
	]}`

	got, err := ParseResponse(content, weekReq)
	require.NoError(t, err)
	require.Len(t, got.Plan.Tasks, 1)
	assert.Equal(t, "1", got.Plan.Tasks[0].ID)
	assert.Equal(t, 6, got.Dropped)
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "", ErrInvalidStructure},
		{"missing title", `{"tasks":[]}`, ErrInvalidStructure},
		{"empty title", `{"title":"","tasks":[]}`, ErrInvalidStructure},
		{"tasks not array", `{"title":"T","tasks":{}}`, ErrInvalidStructure},
		{"missing tasks", `{"title":"T"}`, ErrInvalidStructure},
		{"null document", `null`, ErrInvalidStructure},
		{"no valid tasks", `{"title":"T","tasks":[{"id":"1"}]}`, ErrNoValidTasks},
		{"empty tasks", `{"title":"T","tasks":[]}`, ErrNoValidTasks},
		{"trailing prose", `{"title":"T","tasks":[]} hope this helps`, errTrailingData},
		{"second document", `{"title":"T","tasks":[]} {}`, errTrailingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.content, weekReq)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := ParseResponse("I'm sorry, I can't do that.", weekReq)
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
