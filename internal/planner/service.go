// Package planner turns a goal into a structured plan.
//
// Service.Generate never fails once the request is valid: without a model
// client it returns template tasks, and any model or parsing failure falls
// back to the same templates with a message saying so.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/planner/internal/events"
	"github.com/fyrsmithlabs/planner/internal/llm"
	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/fyrsmithlabs/planner/internal/secrets"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/planner/internal/planner"

// Source says where a plan's tasks came from.
type Source string

const (
	SourceMock     Source = "mock"
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Response messages.
const (
	MessageMock     = "Plan generated (mock data - no API key configured)"
	MessageSuccess  = "Plan generated successfully"
	MessageAPIError = "Plan generated (fallback due to API error - this is normal and expected occasionally)"
)

// Result is a generated plan with its envelope message.
type Result struct {
	Plan    plan.StructuredPlan
	Message string
	Source  Source
}

// Options configures a Service. Only Logger is required.
type Options struct {
	// Client is nil when no API key is configured.
	Client      llm.Client
	Redactor    secrets.Redactor
	Publisher   events.Publisher
	Metrics     *Metrics
	Logger      *logging.Logger
	Tracer      trace.Tracer
	MaxTokens   int
	Temperature float64
	Now         func() time.Time
}

// Service generates plans.
type Service struct {
	client      llm.Client
	redactor    secrets.Redactor
	publisher   events.Publisher
	metrics     *Metrics
	logger      *logging.Logger
	tracer      trace.Tracer
	maxTokens   int
	temperature float64
	now         func() time.Time
}

// NewService creates a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	s := &Service{
		client:      opts.Client,
		redactor:    opts.Redactor,
		publisher:   opts.Publisher,
		metrics:     opts.Metrics,
		logger:      opts.Logger.Named("planner"),
		tracer:      opts.Tracer,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		now:         opts.Now,
	}
	if s.redactor == nil {
		s.redactor = secrets.Nop{}
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(instrumentationName)
	}
	if s.maxTokens == 0 {
		s.maxTokens = 1500
	}
	if s.temperature == 0 {
		s.temperature = 0.7
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// HasModel reports whether a model client is configured.
func (s *Service) HasModel() bool {
	return s.client != nil
}

// Generate validates req and produces a plan. The only errors returned are
// validation errors (plan.ErrGoalRequired, plan.ErrInvalidTimeHorizon).
func (s *Service) Generate(ctx context.Context, req plan.GenerateRequest) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "planner.generate",
		trace.WithAttributes(attribute.String("time_horizon", string(req.TimeHorizon))))
	defer span.End()

	if err := req.Validate(); err != nil {
		s.metrics.InvalidRequests.WithLabelValues(invalidReason(err)).Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res, redacted := s.generate(ctx, req)
	span.SetAttributes(
		attribute.String("source", string(res.Source)),
		attribute.Int("tasks", len(res.Plan.Tasks)),
		attribute.Bool("redacted", redacted),
	)

	s.metrics.RecordPlan(res.Source, len(res.Plan.Tasks))
	s.logger.Info(ctx, "plan generated",
		zap.String("source", string(res.Source)),
		zap.String("time_horizon", string(res.Plan.TimeHorizon)),
		zap.Int("tasks", len(res.Plan.Tasks)),
	)

	// Mock and fallback titles echo the goal verbatim.
	title := s.redactor.Redact(res.Plan.Title)
	ev := events.PlanGenerated{
		RequestID:   logging.RequestIDFromContext(ctx),
		Title:       title.Content,
		TimeHorizon: string(res.Plan.TimeHorizon),
		TaskCount:   len(res.Plan.Tasks),
		Source:      string(res.Source),
		Redacted:    redacted || title.Redacted(),
		GeneratedAt: s.now().UTC(),
	}
	if err := s.publisher.PublishPlanGenerated(ctx, ev); err != nil {
		s.logger.Warn(ctx, "failed to publish plan event", zap.Error(err))
	}

	return res, nil
}

func (s *Service) generate(ctx context.Context, req plan.GenerateRequest) (*Result, bool) {
	if s.client == nil {
		return &Result{
			Plan:    plan.FallbackPlan(req.Goal, req.TimeHorizon, "", s.now()),
			Message: MessageMock,
			Source:  SourceMock,
		}, false
	}

	red := s.redactor.Redact(req.Goal)
	goal := red.Content
	if red.Redacted() {
		s.metrics.GoalsRedacted.Inc()
		s.logger.Warn(ctx, "secrets redacted from goal", zap.Strings("rules", red.RuleIDs()))
	}

	prompt := BuildPrompt(goal, req.TimeHorizon)
	s.logger.Trace(ctx, "model prompt", zap.String("prompt", prompt))

	start := time.Now()
	content, err := s.client.Complete(ctx, llm.Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		s.metrics.RecordModelCall("error", time.Since(start).Seconds())
		s.logger.Error(ctx, "model call failed, using fallback plan", zap.Error(err))
		return &Result{
			Plan:    plan.FallbackPlan(req.Goal, req.TimeHorizon, plan.ErrorFallbackDescription, s.now()),
			Message: MessageAPIError,
			Source:  SourceFallback,
		}, red.Redacted()
	}
	s.metrics.RecordModelCall("ok", time.Since(start).Seconds())
	s.logger.Trace(ctx, "model response", zap.String("content", content))

	parsed, err := ParseResponse(content, req)
	if err != nil {
		s.logger.Warn(ctx, "model response rejected, using fallback plan", zap.Error(err))
		return &Result{
			Plan:    plan.FallbackPlan(req.Goal, req.TimeHorizon, "", s.now()),
			Message: MessageSuccess,
			Source:  SourceFallback,
		}, red.Redacted()
	}
	if parsed.Dropped > 0 {
		s.metrics.TasksDropped.Add(float64(parsed.Dropped))
		s.logger.Debug(ctx, "dropped invalid tasks", zap.Int("dropped", parsed.Dropped))
	}

	return &Result{
		Plan:    parsed.Plan,
		Message: MessageSuccess,
		Source:  SourceAI,
	}, red.Redacted()
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, plan.ErrGoalRequired):
		return "goal"
	case errors.Is(err, plan.ErrInvalidTimeHorizon):
		return "time_horizon"
	default:
		return fmt.Sprintf("%T", err)
	}
}
