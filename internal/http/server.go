// Package http serves the planner proxy API.
//
// Routes:
//
//	GET  /health   liveness plus whether a model API key is configured
//	POST /plan     generate a plan for {goal, timeHorizon}
//	GET  /metrics  Prometheus exposition (when a handler is supplied)
//
// Every other path answers 404 with {"success":false,"message":"Endpoint not found"}.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/planner/internal/config"
	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/fyrsmithlabs/planner/internal/planner"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generator produces plans.
type Generator interface {
	Generate(ctx context.Context, req plan.GenerateRequest) (*planner.Result, error)
	HasModel() bool
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       float64 // requests per second per client IP, 0 disables
	BodyLimit       string
}

// ConfigFrom converts the application server section.
func ConfigFrom(c config.ServerConfig) *Config {
	return &Config{
		Host:            c.Host,
		Port:            c.Port,
		ShutdownTimeout: c.ShutdownTimeout.Duration(),
		CORSOrigins:     c.CORSOrigins,
		RateLimit:       c.RateLimit,
		BodyLimit:       c.BodyLimit,
	}
}

// Option customizes a Server.
type Option func(*Server)

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithHTTPMetrics records OpenTelemetry request metrics.
func WithHTTPMetrics(m *HTTPMetrics) Option {
	return func(s *Server) { s.httpMetrics = m }
}

// WithClock overrides the time source used for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server provides the planner HTTP endpoints.
type Server struct {
	echo           *echo.Echo
	generator      Generator
	logger         *logging.Logger
	config         *Config
	metricsHandler http.Handler
	httpMetrics    *HTTPMetrics
	now            func() time.Time
}

// NewServer creates a new HTTP server.
func NewServer(gen Generator, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = ConfigFrom(config.Default().Server)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		generator: gen,
		logger:    logger.Named("http"),
		config:    cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(s.requestLogger())
	if s.httpMetrics != nil {
		e.Use(s.httpMetrics.MetricsMiddleware())
	}
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}))
	}
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/health" || c.Path() == "/metrics"
			},
			Store: middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit)),
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return c.JSON(http.StatusTooManyRequests, plan.Envelope[any]{
					Success: false,
					Message: "Too many requests",
				})
			},
		}))
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/plan", s.handlePlan)
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

// handleError renders every error as a JSON envelope. Unknown routes and
// methods both answer 404.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}
	if code == http.StatusNotFound || code == http.StatusMethodNotAllowed {
		code = http.StatusNotFound
		message = "Endpoint not found"
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", zap.Error(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, plan.Envelope[any]{Success: false, Message: message})
	}
	if writeErr != nil {
		s.logger.Warn(c.Request().Context(), "failed to write error response", zap.Error(writeErr))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully within
// the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	s.logger.Info(ctx, "starting http server",
		zap.String("addr", addr),
		zap.Bool("has_api_key", s.generator.HasModel()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Addr returns the listening address once the server has started.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
