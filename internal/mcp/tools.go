package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var errInvalidArgument = errors.New("invalid argument")

type generatePlanInput struct {
	Goal        string `json:"goal" jsonschema:"What the user wants to achieve"`
	TimeHorizon string `json:"time_horizon" jsonschema:"Either 'Today' or 'This Week'"`
}

type generatePlanOutput struct {
	Source  string              `json:"source" jsonschema:"Where the tasks came from: ai, fallback or mock"`
	Message string              `json:"message" jsonschema:"Status message"`
	Plan    plan.StructuredPlan `json:"plan" jsonschema:"The generated plan"`
}

type summarizeTasksInput struct {
	Tasks  []plan.Task `json:"tasks" jsonschema:"Tasks to summarize"`
	Filter string      `json:"filter,omitempty" jsonschema:"All (default), High, Medium or Low"`
	Sort   string      `json:"sort,omitempty" jsonschema:"priorityThenDate (default), priority, dueDate or completion"`
}

type summarizeTasksOutput struct {
	Tasks []plan.Task `json:"tasks" jsonschema:"Filtered and sorted tasks"`
	Stats plan.Stats  `json:"stats" jsonschema:"Completion statistics over the input tasks"`
}

type statusInput struct{}

type statusOutput struct {
	HasAPIKey bool `json:"has_api_key" jsonschema:"Whether plans come from the model rather than templates"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "generate_plan",
		Description: "Turn a goal into a short checklist of 3-7 prioritized tasks for today or this week.",
	}, s.generatePlan)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "summarize_tasks",
		Description: "Filter tasks by priority, sort them and report completion statistics.",
	}, s.summarizeTasks)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "planner_status",
		Description: "Report whether the planner has a model API key configured.",
	}, s.status)
}

func (s *Server) generatePlan(ctx context.Context, _ *mcp.CallToolRequest, args generatePlanInput) (res *mcp.CallToolResult, out generatePlanOutput, err error) {
	done := s.metrics.track(ctx, "generate_plan")
	defer func() { done(err) }()

	result, err := s.generator.Generate(ctx, plan.GenerateRequest{
		Goal:        args.Goal,
		TimeHorizon: plan.TimeHorizon(args.TimeHorizon),
	})
	if err != nil {
		s.logger.Debug(ctx, "generate_plan rejected", zap.Error(err))
		return nil, generatePlanOutput{}, err
	}
	if result.Plan.Tasks == nil {
		result.Plan.Tasks = []plan.Task{}
	}

	out = generatePlanOutput{
		Source:  string(result.Source),
		Message: result.Message,
		Plan:    result.Plan,
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %q with %d tasks", result.Message, result.Plan.Title, len(result.Plan.Tasks))},
		},
	}, out, nil
}

func (s *Server) summarizeTasks(ctx context.Context, _ *mcp.CallToolRequest, args summarizeTasksInput) (res *mcp.CallToolResult, out summarizeTasksOutput, err error) {
	done := s.metrics.track(ctx, "summarize_tasks")
	defer func() { done(err) }()

	filter, err := plan.ParseFilter(args.Filter)
	if err != nil {
		return nil, summarizeTasksOutput{}, fmt.Errorf("%w: %v", errInvalidArgument, err)
	}
	sortBy := plan.SortOption(args.Sort)
	switch sortBy {
	case "", plan.SortPriority, plan.SortDueDate, plan.SortCompletion, plan.SortPriorityThenDate:
	default:
		return nil, summarizeTasksOutput{}, fmt.Errorf("%w: unknown sort %q", errInvalidArgument, args.Sort)
	}

	tasks := plan.FilterAndSort(args.Tasks, filter, sortBy)
	if tasks == nil {
		tasks = []plan.Task{}
	}
	out = summarizeTasksOutput{Tasks: tasks, Stats: plan.Statistics(args.Tasks)}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d of %d tasks complete (%d%%)",
				out.Stats.CompletedTasks, out.Stats.TotalTasks, out.Stats.CompletionPercentage)},
		},
	}, out, nil
}

func (s *Server) status(ctx context.Context, _ *mcp.CallToolRequest, _ statusInput) (*mcp.CallToolResult, statusOutput, error) {
	done := s.metrics.track(ctx, "planner_status")
	defer done(nil)

	return nil, statusOutput{HasAPIKey: s.generator.HasModel()}, nil
}
