package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// healthTimestampLayout matches JavaScript's Date.toISOString.
const healthTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// planRequestBody accepts any JSON types so a non-string goal is reported
// as a validation error rather than a decode error.
type planRequestBody struct {
	Goal        any `json:"goal"`
	TimeHorizon any `json:"timeHorizon"`
}

func (b planRequestBody) toRequest() (plan.GenerateRequest, error) {
	goal, ok := b.Goal.(string)
	if !ok {
		return plan.GenerateRequest{}, plan.ErrGoalRequired
	}
	horizon, _ := b.TimeHorizon.(string)
	req := plan.GenerateRequest{Goal: goal, TimeHorizon: plan.TimeHorizon(horizon)}
	return req, req.Validate()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, plan.Health{
		Status:    "OK",
		Timestamp: s.now().UTC().Format(healthTimestampLayout),
		HasAPIKey: s.generator.HasModel(),
	})
}

func (s *Server) handlePlan(c echo.Context) error {
	ctx := c.Request().Context()

	var body planRequestBody
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		s.logger.Warn(ctx, "invalid plan request body", zap.Error(err))
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return c.JSON(http.StatusBadRequest, plan.Envelope[any]{
			Success: false,
			Message: "Invalid request body",
		})
	}

	req, err := body.toRequest()
	if err != nil {
		return c.JSON(http.StatusBadRequest, plan.Envelope[any]{
			Success: false,
			Message: err.Error(),
		})
	}

	start := time.Now()
	res, err := s.generator.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, plan.ErrGoalRequired) || errors.Is(err, plan.ErrInvalidTimeHorizon) {
			return c.JSON(http.StatusBadRequest, plan.Envelope[any]{Success: false, Message: err.Error()})
		}
		return err
	}

	s.logger.Debug(ctx, "plan request served",
		zap.String("source", string(res.Source)),
		zap.Duration("duration", time.Since(start)),
	)

	return c.JSON(http.StatusOK, plan.Envelope[plan.StructuredPlan]{
		Success: true,
		Data:    res.Plan,
		Message: res.Message,
	})
}
