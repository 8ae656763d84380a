package logging

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/planner/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Underlying().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Underlying().Core().Enabled(zapcore.DebugLevel))
	assert.NoError(t, logger.Sync())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be")
}

func TestNewLogger_OTELWithoutProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = true

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one output")
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithRequestID(context.Background(), "req-1")

	tl.Trace(ctx, "trace message")
	tl.Debug(ctx, "debug message")
	tl.Info(ctx, "info message", zap.String("key", "val"))
	tl.Warn(ctx, "warn message")
	tl.Error(ctx, "error message")

	tl.AssertLogged(t, TraceLevel, "trace message")
	tl.AssertLogged(t, zapcore.DebugLevel, "debug message")
	tl.AssertLogged(t, zapcore.InfoLevel, "info message")
	tl.AssertLogged(t, zapcore.WarnLevel, "warn message")
	tl.AssertLogged(t, zapcore.ErrorLevel, "error message")
	tl.AssertField(t, "info message", "key", "val")
	tl.AssertField(t, "info message", "request.id", "req-1")
	assert.Len(t, tl.All(), 5)

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestLogger_Named(t *testing.T) {
	tl := NewTestLogger()

	child := tl.Named("planner").Named("llm")
	child.Info(context.Background(), "child message", zap.String("component", "retry"))

	tl.AssertField(t, "child message", "component", "retry")
	entries := tl.FilterMessage("child message").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "planner.llm", entries[0].LoggerName)
}

func TestLogger_FilteredLevelsSkipped(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	l := &Logger{z: zap.New(core)}
	ctx := WithRequestID(context.Background(), "req-9")

	l.Trace(ctx, "raw model output")
	l.Debug(ctx, "debug")
	l.Info(ctx, "kept")

	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "kept", observed.All()[0].Message)
	assert.Equal(t, "req-9", observed.All()[0].ContextMap()["request.id"])
}

func TestZapOptions_StaticFieldsAndCaller(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	cfg := NewDefaultConfig()
	cfg.Fields["region"] = "eu"
	l := &Logger{z: zap.New(core, zapOptions(cfg)...)}

	l.Info(context.Background(), "hello")

	require.Equal(t, 1, observed.Len())
	entry := observed.All()[0]
	assert.Equal(t, "planner", entry.ContextMap()["service"])
	assert.Equal(t, "eu", entry.ContextMap()["region"])
	require.True(t, entry.Caller.Defined)
	assert.Contains(t, entry.Caller.File, "logger_test.go")
}

func TestLevelName(t *testing.T) {
	for _, name := range []string{"trace", "debug", "info", "warn", "error"} {
		lvl, err := LevelFromString(name)
		require.NoError(t, err)
		assert.Equal(t, name, LevelName(lvl))
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromObservability(t *testing.T) {
	cfg, err := FromObservability(config.ObservabilityConfig{
		ServiceName: "plannerd",
		LogLevel:    "debug",
		LogFormat:   "console",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "plannerd", cfg.Fields["service"])

	_, err = FromObservability(config.ObservabilityConfig{LogLevel: "shout"}, false)
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithRequestID(ctx, "req-42")
	ctx = WithPlanID(ctx, "plan-7")
	fields := ContextFields(ctx)

	keys := make(map[string]string, len(fields))
	for _, f := range fields {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "req-42", keys["request.id"])
	assert.Equal(t, "plan-7", keys["plan.id"])
}

func TestWithRequestID_Truncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	ctx := WithRequestID(context.Background(), string(long))
	assert.Len(t, RequestIDFromContext(ctx), maxIDLen)

	assert.Equal(t, context.Background(), WithRequestID(context.Background(), ""))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}
