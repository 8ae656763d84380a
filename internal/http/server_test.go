package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/fyrsmithlabs/planner/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"
)

var fixedNow = time.Date(2026, 10, 18, 12, 30, 45, 123_000_000, time.UTC)

type fakeGenerator struct {
	hasModel bool
	result   *planner.Result
	err      error
	got      []plan.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req plan.GenerateRequest) (*planner.Result, error) {
	f.got = append(f.got, req)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.result, f.err
}

func (f *fakeGenerator) HasModel() bool { return f.hasModel }

func setupTestServer(t *testing.T, gen Generator, mutate ...func(*Config)) (*Server, *logging.TestLogger) {
	t.Helper()
	tl := logging.NewTestLogger()
	cfg := &Config{Host: "127.0.0.1", Port: 0, CORSOrigins: []string{"*"}, BodyLimit: "64K"}
	for _, m := range mutate {
		m(cfg)
	}
	s, err := NewServer(gen, tl.Logger, cfg, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return s, tl
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("requires generator", func(t *testing.T) {
		_, err := NewServer(nil, logging.NewNop(), nil)
		assert.ErrorContains(t, err, "generator cannot be nil")
	})

	t.Run("requires logger", func(t *testing.T) {
		_, err := NewServer(&fakeGenerator{}, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		s, err := NewServer(&fakeGenerator{}, logging.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", s.config.Host)
		assert.Equal(t, 8787, s.config.Port)
		assert.Equal(t, 10*time.Second, s.config.ShutdownTimeout)
	})
}

func TestHandleHealth(t *testing.T) {
	for _, hasKey := range []bool{true, false} {
		s, _ := setupTestServer(t, &fakeGenerator{hasModel: hasKey})

		rec := doRequest(s, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp plan.Health
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "OK", resp.Status)
		assert.Equal(t, "2026-10-18T12:30:45.123Z", resp.Timestamp)
		assert.Equal(t, hasKey, resp.HasAPIKey)
	}
}

func TestHandlePlan_Success(t *testing.T) {
	gen := &fakeGenerator{
		hasModel: true,
		result: &planner.Result{
			Plan: plan.StructuredPlan{
				Title:       "Garage",
				Description: "Tidy up",
				TimeHorizon: plan.HorizonToday,
				Tasks:       []plan.Task{{ID: "1", Title: "Sort", DueDate: "Today", Priority: plan.PriorityHigh, Emoji: "📦"}},
			},
			Message: planner.MessageSuccess,
			Source:  planner.SourceAI,
		},
	}
	s, _ := setupTestServer(t, gen)

	rec := doRequest(s, http.MethodPost, "/plan", `{"goal":"Clean the garage","timeHorizon":"Today"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env plan.Envelope[plan.StructuredPlan]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, planner.MessageSuccess, env.Message)
	assert.Equal(t, "Garage", env.Data.Title)
	require.Len(t, env.Data.Tasks, 1)

	require.Len(t, gen.got, 1)
	assert.Equal(t, plan.GenerateRequest{Goal: "Clean the garage", TimeHorizon: plan.HorizonToday}, gen.got[0])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHandlePlan_WithMockService(t *testing.T) {
	svc, err := planner.NewService(planner.Options{Logger: logging.NewNop()})
	require.NoError(t, err)
	s, _ := setupTestServer(t, svc)

	rec := doRequest(s, http.MethodPost, "/plan", `{"goal":"Write a blog post","timeHorizon":"This Week"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env plan.Envelope[plan.StructuredPlan]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, planner.MessageMock, env.Message)
	assert.Equal(t, "Write a blog post", env.Data.Title)
	assert.Len(t, env.Data.Tasks, 5)
}

func TestHandlePlan_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing goal", `{"timeHorizon":"Today"}`, "Goal is required and must be a string"},
		{"numeric goal", `{"goal":42,"timeHorizon":"Today"}`, "Goal is required and must be a string"},
		{"empty goal", `{"goal":"","timeHorizon":"Today"}`, "Goal is required and must be a string"},
		{"missing horizon", `{"goal":"x"}`, `Time horizon must be either "Today" or "This Week"`},
		{"bad horizon", `{"goal":"x","timeHorizon":"Tomorrow"}`, `Time horizon must be either "Today" or "This Week"`},
		{"malformed json", `{"goal":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			s, _ := setupTestServer(t, gen)

			rec := doRequest(s, http.MethodPost, "/plan", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var env plan.Envelope[any]
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
			assert.Empty(t, gen.got, "generator must not be called")
		})
	}
}

func TestHandlePlan_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("unexpected")}
	s, tl := setupTestServer(t, gen)

	rec := doRequest(s, http.MethodPost, "/plan", `{"goal":"x","timeHorizon":"Today"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"data":null,"message":"Internal server error"}`, rec.Body.String())
	tl.AssertLogged(t, zapcore.ErrorLevel, "request failed")
}

func TestHandlePlan_BodyTooLarge(t *testing.T) {
	s, _ := setupTestServer(t, &fakeGenerator{}, func(c *Config) { c.BodyLimit = "1K" })

	big := `{"goal":"` + strings.Repeat("a", 4096) + `","timeHorizon":"Today"}`
	rec := doRequest(s, http.MethodPost, "/plan", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNotFound(t *testing.T) {
	s, _ := setupTestServer(t, &fakeGenerator{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/plan"},
		{http.MethodDelete, "/health"},
		{http.MethodGet, "/metrics"},
	} {
		rec := doRequest(s, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		assert.JSONEq(t, `{"success":false,"data":null,"message":"Endpoint not found"}`, rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("planner_plans_generated_total 1\n"))
	})
	tl := logging.NewTestLogger()
	s, err := NewServer(&fakeGenerator{}, tl.Logger, &Config{}, WithMetricsHandler(h))
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "planner_plans_generated_total")
}

func TestCORS(t *testing.T) {
	s, _ := setupTestServer(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodOptions, "/plan", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	gen := &fakeGenerator{result: &planner.Result{Message: "ok"}}
	s, _ := setupTestServer(t, gen, func(c *Config) { c.RateLimit = 0.001 })

	body := `{"goal":"x","timeHorizon":"Today"}`
	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		codes = append(codes, doRequest(s, http.MethodPost, "/plan", body).Code)
	}
	assert.Contains(t, codes, http.StatusTooManyRequests)

	// Health checks are never limited.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/health", "").Code)
	}
}

func TestRequestLogging(t *testing.T) {
	s, tl := setupTestServer(t, &fakeGenerator{})

	doRequest(s, http.MethodGet, "/health", "")
	tl.AssertLogged(t, zapcore.InfoLevel, "http request")
	tl.AssertField(t, "http request", "status", int64(http.StatusOK))
	tl.AssertField(t, "http request", "method", http.MethodGet)

	entries := tl.FilterMessage("http request").All()
	require.NotEmpty(t, entries)
	assert.NotEmpty(t, entries[0].ContextMap()["request.id"])
}

func TestServer_StartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, _ := setupTestServer(t, &fakeGenerator{}, func(c *Config) { c.ShutdownTimeout = time.Second })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	http.DefaultClient.CloseIdleConnections()
}

func TestServer_StartFailsOnBusyPort(t *testing.T) {
	first, _ := setupTestServer(t, &fakeGenerator{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = first.Start(ctx) }()
	require.Eventually(t, func() bool { return first.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	port := first.Addr().(*net.TCPAddr).Port
	second, _ := setupTestServer(t, &fakeGenerator{}, func(c *Config) { c.Port = port })

	err := second.Start(context.Background())
	assert.Error(t, err)
}
