// Package store holds planctl's plan state: generated plans, the current
// plan and request status. Plans and the current selection are persisted
// after every change; loading, error and connectivity flags are not.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fyrsmithlabs/planner/internal/logging"
	"github.com/fyrsmithlabs/planner/internal/plan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPlanNotFound is returned when a plan ID is unknown.
var ErrPlanNotFound = errors.New("plan not found")

// DefaultGenerateError is recorded when a failed generation carries no message.
const DefaultGenerateError = "Failed to generate plan"

// API is the subset of the proxy client the store needs.
type API interface {
	GeneratePlan(ctx context.Context, goal string, horizon plan.TimeHorizon) (*plan.Envelope[plan.StructuredPlan], error)
	CheckHealth(ctx context.Context) (*plan.Health, error)
}

// State is a point-in-time view of the store.
type State struct {
	CurrentPlanID string       `json:"currentPlanId,omitempty"`
	Plans         []*plan.Plan `json:"plans"`
	IsLoading     bool         `json:"isLoading"`
	Error         string       `json:"error,omitempty"`
	APIConnected  bool         `json:"apiConnected"`
}

// CurrentPlan returns the selected plan, or nil.
func (s State) CurrentPlan() *plan.Plan {
	return findPlan(s.Plans, s.CurrentPlanID)
}

// Persisted is the durable part of State.
type Persisted struct {
	CurrentPlanID string
	Plans         []*plan.Plan
}

// Persister loads and saves the durable state.
type Persister interface {
	Load(ctx context.Context) (Persisted, error)
	Save(ctx context.Context, p Persisted) error
}

// Options configures a Store. API is required for GeneratePlan and
// CheckAPIHealth only.
type Options struct {
	API       API
	Persister Persister
	Logger    *logging.Logger
	Now       func() time.Time
	NewID     func() string
}

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	state     State
	api       API
	persister Persister
	logger    *logging.Logger
	now       func() time.Time
	newID     func() string
}

// Open creates a Store and rehydrates it from the persister.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := &Store{
		api:       opts.API,
		persister: opts.Persister,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.persister == nil {
		s.persister = &MemoryPersister{}
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.Named("store")
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	p, err := s.persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	s.state.Plans = p.Plans
	if findPlan(p.Plans, p.CurrentPlanID) != nil {
		s.state.CurrentPlanID = p.CurrentPlanID
	}
	s.logger.Debug(ctx, "state loaded",
		zap.Int("plans", len(p.Plans)),
		zap.String("current_plan_id", s.state.CurrentPlanID),
	)
	return s, nil
}

// GeneratePlan requests a plan from the proxy and makes it current.
// On failure the error message is recorded in State.Error.
func (s *Store) GeneratePlan(ctx context.Context, goal string, horizon plan.TimeHorizon) (*plan.Plan, error) {
	if s.api == nil {
		return nil, errors.New("store has no proxy client")
	}

	s.mu.Lock()
	s.state.IsLoading = true
	s.state.Error = ""
	s.mu.Unlock()

	env, err := s.api.GeneratePlan(ctx, goal, horizon)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = false
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = DefaultGenerateError
		}
		s.state.Error = msg
		s.logger.Warn(ctx, "plan generation failed", zap.Error(err))
		return nil, err
	}

	p := s.newPlan(env.Data)
	s.state.Plans = slices.Insert(s.state.Plans, 0, p)
	s.state.CurrentPlanID = p.ID
	s.logger.Info(logging.WithPlanID(ctx, p.ID), "plan stored",
		zap.String("title", p.Title),
		zap.Int("tasks", p.TotalTasks),
	)
	if err := s.saveLocked(ctx); err != nil {
		return p.Clone(), err
	}
	return p.Clone(), nil
}

// newPlan gives sp a fresh identity. Task IDs are "<planID>_<index>" and
// every task starts incomplete.
func (s *Store) newPlan(sp plan.StructuredPlan) *plan.Plan {
	id := s.newID()
	tasks := make([]plan.Task, len(sp.Tasks))
	for i, t := range sp.Tasks {
		t.ID = fmt.Sprintf("%s_%d", id, i)
		t.Completed = false
		tasks[i] = t
	}
	return &plan.Plan{
		ID:             id,
		Title:          sp.Title,
		Description:    sp.Description,
		Tasks:          tasks,
		TimeHorizon:    sp.TimeHorizon,
		CreatedAt:      s.now().UTC(),
		CompletedTasks: 0,
		TotalTasks:     len(tasks),
	}
}

// CheckAPIHealth asks the proxy whether it has a model API key. A failed
// check leaves APIConnected unchanged.
func (s *Store) CheckAPIHealth(ctx context.Context) (bool, error) {
	if s.api == nil {
		return false, errors.New("store has no proxy client")
	}
	h, err := s.api.CheckHealth(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.state.APIConnected = h.HasAPIKey
	s.mu.Unlock()
	return h.HasAPIKey, nil
}

// UpdateTaskStatus marks a task complete or incomplete and recounts its
// plan. It reports whether the task was found.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, completed bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, p := range s.state.Plans {
		for i := range p.Tasks {
			if p.Tasks[i].ID == taskID {
				p.Tasks[i].Completed = completed
				found = true
			}
		}
		if found {
			p.RecountCompleted()
		}
	}
	if !found {
		return false, nil
	}
	return true, s.saveLocked(ctx)
}

// SetCurrentPlan selects a stored plan.
func (s *Store) SetCurrentPlan(ctx context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if findPlan(s.state.Plans, planID) == nil {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	s.state.CurrentPlanID = planID
	return s.saveLocked(ctx)
}

// ClearCurrentPlan deselects the current plan without deleting it.
func (s *Store) ClearCurrentPlan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentPlanID = ""
	return s.saveLocked(ctx)
}

// DeletePlan removes a plan, clearing the selection if it was current.
func (s *Store) DeletePlan(ctx context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.state.Plans)
	s.state.Plans = slices.DeleteFunc(s.state.Plans, func(p *plan.Plan) bool { return p.ID == planID })
	if len(s.state.Plans) == n {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if s.state.CurrentPlanID == planID {
		s.state.CurrentPlanID = ""
	}
	return s.saveLocked(ctx)
}

// ClearError resets State.Error.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
}

// Plan returns a copy of the plan with the given ID.
func (s *Store) Plan(planID string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := findPlan(s.state.Plans, planID)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return p.Clone(), nil
}

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Plans = clonePlans(s.state.Plans)
	return out
}

func (s *Store) saveLocked(ctx context.Context) error {
	err := s.persister.Save(ctx, Persisted{
		CurrentPlanID: s.state.CurrentPlanID,
		Plans:         s.state.Plans,
	})
	if err != nil {
		s.logger.Error(ctx, "failed to persist state", zap.Error(err))
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

func findPlan(plans []*plan.Plan, id string) *plan.Plan {
	if id == "" {
		return nil
	}
	for _, p := range plans {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func clonePlans(plans []*plan.Plan) []*plan.Plan {
	out := make([]*plan.Plan, len(plans))
	for i, p := range plans {
		out[i] = p.Clone()
	}
	return out
}

// MemoryPersister keeps state in memory. The zero value is ready to use.
type MemoryPersister struct {
	mu    sync.Mutex
	saved Persisted
	Saves int
}

// Load implements Persister.
func (m *MemoryPersister) Load(context.Context) (Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Persisted{CurrentPlanID: m.saved.CurrentPlanID, Plans: clonePlans(m.saved.Plans)}, nil
}

// Save implements Persister.
func (m *MemoryPersister) Save(_ context.Context, p Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = Persisted{CurrentPlanID: p.CurrentPlanID, Plans: clonePlans(p.Plans)}
	m.Saves++
	return nil
}
