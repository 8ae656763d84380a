package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu     sync.Mutex
	plan   plan.StructuredPlan
	err    error
	health *plan.Health
	calls  int
}

func (f *fakeAPI) GeneratePlan(_ context.Context, goal string, horizon plan.TimeHorizon) (*plan.Envelope[plan.StructuredPlan], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := f.plan
	if p.Title == "" {
		p.Title = goal
	}
	p.TimeHorizon = horizon
	return &plan.Envelope[plan.StructuredPlan]{Success: true, Data: p}, nil
}

func (f *fakeAPI) CheckHealth(context.Context) (*plan.Health, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.health, nil
}

func threeTasks() plan.StructuredPlan {
	return plan.StructuredPlan{
		Description: "desc",
		Tasks: []plan.Task{
			{ID: "a", Title: "One", DueDate: "Today", Priority: plan.PriorityHigh, Completed: true},
			{ID: "b", Title: "Two", DueDate: "Today", Priority: plan.PriorityLow},
			{ID: "c", Title: "Three", DueDate: "Today", Priority: plan.PriorityMedium, Emoji: "🎯"},
		},
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("plan-%d", n)
	}
}

func openTestStore(t *testing.T, api API, p Persister) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{
		API:       api,
		Persister: p,
		Now:       func() time.Time { return testNow },
		NewID:     sequentialIDs(),
	})
	require.NoError(t, err)
	return s
}

func TestStore_GeneratePlan(t *testing.T) {
	api := &fakeAPI{plan: threeTasks()}
	mem := &MemoryPersister{}
	s := openTestStore(t, api, mem)

	p, err := s.GeneratePlan(context.Background(), "Ship it", plan.HorizonToday)
	require.NoError(t, err)

	assert.Equal(t, "plan-1", p.ID)
	assert.Equal(t, "Ship it", p.Title)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, 3, p.TotalTasks)
	assert.Equal(t, 0, p.CompletedTasks)
	for i, task := range p.Tasks {
		assert.Equal(t, fmt.Sprintf("plan-1_%d", i), task.ID)
		assert.False(t, task.Completed)
	}

	st := s.Snapshot()
	assert.Equal(t, "plan-1", st.CurrentPlanID)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	require.Len(t, st.Plans, 1)
	assert.Equal(t, 1, mem.Saves)

	_, err = s.GeneratePlan(context.Background(), "Second", plan.HorizonThisWeek)
	require.NoError(t, err)
	st = s.Snapshot()
	require.Len(t, st.Plans, 2)
	assert.Equal(t, "plan-2", st.Plans[0].ID, "newest first")
	assert.Equal(t, "plan-2", st.CurrentPlan().ID)
}

func TestStore_GeneratePlan_Failure(t *testing.T) {
	api := &fakeAPI{err: errors.New("Goal is required and must be a string")}
	tl := logging.NewTestLogger()
	s, err := Open(context.Background(), Options{API: api, Logger: tl.Logger})
	require.NoError(t, err)

	_, err = s.GeneratePlan(context.Background(), "", plan.HorizonToday)
	require.Error(t, err)

	st := s.Snapshot()
	assert.False(t, st.IsLoading)
	assert.Equal(t, "Goal is required and must be a string", st.Error)
	assert.Empty(t, st.Plans)
	tl.AssertLogged(t, zapcore.WarnLevel, "plan generation failed")

	s.ClearError()
	assert.Empty(t, s.Snapshot().Error)
}

func TestStore_GeneratePlan_EmptyErrorMessage(t *testing.T) {
	s := openTestStore(t, &fakeAPI{err: errors.New("")}, nil)

	_, err := s.GeneratePlan(context.Background(), "g", plan.HorizonToday)
	require.Error(t, err)
	assert.Equal(t, DefaultGenerateError, s.Snapshot().Error)
}

func TestStore_GeneratePlan_ClearsPreviousError(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	s := openTestStore(t, api, nil)
	_, _ = s.GeneratePlan(context.Background(), "g", plan.HorizonToday)
	require.Equal(t, "boom", s.Snapshot().Error)

	api.err = nil
	_, err := s.GeneratePlan(context.Background(), "g", plan.HorizonToday)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Error)
}

func TestStore_NoAPI(t *testing.T) {
	s := openTestStore(t, nil, nil)
	_, err := s.GeneratePlan(context.Background(), "g", plan.HorizonToday)
	assert.Error(t, err)
	_, err = s.CheckAPIHealth(context.Background())
	assert.Error(t, err)
}

func TestStore_CheckAPIHealth(t *testing.T) {
	api := &fakeAPI{health: &plan.Health{Status: "OK", HasAPIKey: true}}
	s := openTestStore(t, api, nil)

	ok, err := s.CheckAPIHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.Snapshot().APIConnected)

	api.err = errors.New("connection refused")
	_, err = s.CheckAPIHealth(context.Background())
	require.Error(t, err)
	assert.True(t, s.Snapshot().APIConnected, "failed check leaves flag unchanged")

	api.err = nil
	api.health = &plan.Health{Status: "OK"}
	ok, err = s.CheckAPIHealth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.Snapshot().APIConnected)
}

func TestStore_UpdateTaskStatus(t *testing.T) {
	s := openTestStore(t, &fakeAPI{plan: threeTasks()}, nil)
	ctx := context.Background()
	_, err := s.GeneratePlan(ctx, "one", plan.HorizonToday)
	require.NoError(t, err)
	_, err = s.GeneratePlan(ctx, "two", plan.HorizonToday)
	require.NoError(t, err)

	found, err := s.UpdateTaskStatus(ctx, "plan-1_1", true)
	require.NoError(t, err)
	assert.True(t, found)

	p1, err := s.Plan("plan-1")
	require.NoError(t, err)
	assert.True(t, p1.Tasks[1].Completed)
	assert.Equal(t, 1, p1.CompletedTasks)

	p2, err := s.Plan("plan-2")
	require.NoError(t, err)
	assert.Equal(t, 0, p2.CompletedTasks, "other plans untouched")

	found, err = s.UpdateTaskStatus(ctx, "plan-1_1", false)
	require.NoError(t, err)
	assert.True(t, found)
	p1, _ = s.Plan("plan-1")
	assert.Equal(t, 0, p1.CompletedTasks)

	found, err = s.UpdateTaskStatus(ctx, "missing", true)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_CurrentPlanSelection(t *testing.T) {
	s := openTestStore(t, &fakeAPI{plan: threeTasks()}, nil)
	ctx := context.Background()
	_, _ = s.GeneratePlan(ctx, "one", plan.HorizonToday)
	_, _ = s.GeneratePlan(ctx, "two", plan.HorizonToday)

	require.NoError(t, s.SetCurrentPlan(ctx, "plan-1"))
	assert.Equal(t, "plan-1", s.Snapshot().CurrentPlanID)

	err := s.SetCurrentPlan(ctx, "nope")
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.Equal(t, "plan-1", s.Snapshot().CurrentPlanID)

	require.NoError(t, s.ClearCurrentPlan(ctx))
	assert.Nil(t, s.Snapshot().CurrentPlan())
	assert.Len(t, s.Snapshot().Plans, 2, "clearing keeps plans")
}

func TestStore_DeletePlan(t *testing.T) {
	s := openTestStore(t, &fakeAPI{plan: threeTasks()}, nil)
	ctx := context.Background()
	_, _ = s.GeneratePlan(ctx, "one", plan.HorizonToday)
	_, _ = s.GeneratePlan(ctx, "two", plan.HorizonToday)

	require.NoError(t, s.DeletePlan(ctx, "plan-1"))
	st := s.Snapshot()
	require.Len(t, st.Plans, 1)
	assert.Equal(t, "plan-2", st.CurrentPlanID, "deleting another plan keeps selection")

	require.NoError(t, s.DeletePlan(ctx, "plan-2"))
	st = s.Snapshot()
	assert.Empty(t, st.Plans)
	assert.Empty(t, st.CurrentPlanID)

	assert.ErrorIs(t, s.DeletePlan(ctx, "plan-2"), ErrPlanNotFound)
	_, err := s.Plan("plan-2")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := openTestStore(t, &fakeAPI{plan: threeTasks()}, nil)
	_, err := s.GeneratePlan(context.Background(), "one", plan.HorizonToday)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Plans[0].Tasks[0].Completed = true
	snap.Plans[0].Title = "mutated"

	again := s.Snapshot()
	assert.False(t, again.Plans[0].Tasks[0].Completed)
	assert.Equal(t, "one", again.Plans[0].Title)
}

func TestStore_RehydratesFromPersister(t *testing.T) {
	mem := &MemoryPersister{}
	ctx := context.Background()

	s := openTestStore(t, &fakeAPI{plan: threeTasks()}, mem)
	_, err := s.GeneratePlan(ctx, "kept", plan.HorizonToday)
	require.NoError(t, err)
	_, err = s.UpdateTaskStatus(ctx, "plan-1_2", true)
	require.NoError(t, err)

	reopened := openTestStore(t, nil, mem)
	st := reopened.Snapshot()
	assert.Equal(t, "plan-1", st.CurrentPlanID)
	require.Len(t, st.Plans, 1)
	assert.Equal(t, 1, st.Plans[0].CompletedTasks)
	assert.False(t, st.APIConnected)
	assert.False(t, st.IsLoading)
}

func TestStore_DanglingCurrentPlanIgnored(t *testing.T) {
	mem := &MemoryPersister{}
	require.NoError(t, mem.Save(context.Background(), Persisted{CurrentPlanID: "gone"}))

	s := openTestStore(t, nil, mem)
	assert.Empty(t, s.Snapshot().CurrentPlanID)
}

type failingPersister struct{ MemoryPersister }

func (f *failingPersister) Save(context.Context, Persisted) error {
	return errors.New("disk full")
}

func TestStore_SaveErrorSurfaces(t *testing.T) {
	tl := logging.NewTestLogger()
	s, err := Open(context.Background(), Options{
		API:       &fakeAPI{plan: threeTasks()},
		Persister: &failingPersister{},
		Logger:    tl.Logger,
	})
	require.NoError(t, err)

	p, err := s.GeneratePlan(context.Background(), "g", plan.HorizonToday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, p, "plan is kept in memory")
	tl.AssertLogged(t, zapcore.ErrorLevel, "failed to persist state")
}

func TestStore_ConcurrentUse(t *testing.T) {
	s, err := Open(context.Background(), Options{API: &fakeAPI{plan: threeTasks()}})
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.GeneratePlan(ctx, "g", plan.HorizonToday)
			if assert.NoError(t, err) {
				_, _ = s.UpdateTaskStatus(ctx, p.Tasks[0].ID, true)
			}
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	st := s.Snapshot()
	assert.Len(t, st.Plans, 8)
	for _, p := range st.Plans {
		assert.Equal(t, 1, p.CompletedTasks)
	}
}
