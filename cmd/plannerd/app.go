package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/planner/internal/config"
	"github.com/fyrsmithlabs/planner/internal/events"
	"github.com/fyrsmithlabs/planner/internal/llm"
	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/planner"
	"github.com/fyrsmithlabs/planner/internal/secrets"
	"github.com/fyrsmithlabs/planner/internal/telemetry"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// app holds the wired planner and everything that must be closed with it.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	service   *planner.Service
	nc        *nats.Conn
	allowlist *secrets.ReloadingRedactor
}

// newApp wires the planner from cfg. logStderr keeps stdout free for
// protocols that own it.
func newApp(ctx context.Context, cfg *config.Config, logStderr bool) (*app, error) {
	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return nil, err
	}

	logCfg, err := logging.FromObservability(cfg.Observability, tel.Enabled())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	logCfg.Output.Stderr = logStderr
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, w := range tel.Warnings() {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", w))
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}

	client, err := llm.New(ctx, cfg.LLM, logger)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Warn(ctx, "no model API key configured, serving mock plans")
		client = nil
	case err != nil:
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create model client: %w", err)
	default:
		logger.Info(ctx, "model client ready",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
			logging.Secret("api_key", cfg.LLM.APIKey),
		)
	}

	redactor, err := a.newRedactor(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create secret redactor: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.NATSURL != "" {
		nc, err := events.Connect(cfg.Events.NATSURL)
		if err != nil {
			// Events are optional; the planner works without them.
			logger.Warn(ctx, "plan events disabled", zap.Error(err))
		} else {
			a.nc = nc
			publisher = events.NewNATSPublisher(nc, cfg.Events.Subject)
			logger.Info(ctx, "publishing plan events", zap.String("subject", cfg.Events.Subject))
		}
	}

	svc, err := planner.NewService(planner.Options{
		Client:      client,
		Redactor:    redactor,
		Publisher:   publisher,
		Logger:      logger,
		Tracer:      tel.Tracer("github.com/fyrsmithlabs/planner/internal/planner"),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.service = svc
	return a, nil
}

// newRedactor reloads the allowlist on change when one is configured.
func (a *app) newRedactor(ctx context.Context) (secrets.Redactor, error) {
	sc := a.cfg.Secrets
	if !sc.Enabled || sc.AllowlistPath == "" {
		return secrets.New(sc)
	}

	r, err := secrets.NewReloading(sc.AllowlistPath, func(err error) {
		if err != nil {
			a.logger.Warn(ctx, "allowlist reload failed, keeping previous rules", zap.Error(err))
			return
		}
		a.logger.Info(ctx, "allowlist reloaded", zap.String("path", sc.AllowlistPath))
	})
	if errors.Is(err, secrets.ErrWatcherFailed) {
		a.logger.Warn(ctx, "allowlist changes need a restart", zap.Error(err))
		return secrets.New(sc)
	}
	if err != nil {
		return nil, err
	}
	a.allowlist = r
	return r, nil
}

// Close drains events, flushes telemetry and syncs the logger.
func (a *app) Close(ctx context.Context) {
	if a.allowlist != nil {
		_ = a.allowlist.Close()
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Warn(ctx, "failed to drain NATS connection", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
