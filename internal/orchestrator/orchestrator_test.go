package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/database"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/eventstore"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/projection"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/routing"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

type testEnv struct {
	service     *Service
	events      eventstore.Store
	projections projection.Store
	router      *routing.Router
}

func newTestEnv(t *testing.T, mutate func(*Dependencies)) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "orchestrator.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })

	router := routing.NewRouter(nil)
	deps := Dependencies{
		Events:      eventstore.NewDBStore(db),
		Projections: projection.NewDBStore(db),
		Router:      router,
	}
	if mutate != nil {
		mutate(&deps)
	}

	service := NewService(deps)
	t.Cleanup(service.Wait)

	return &testEnv{
		service:     service,
		events:      deps.Events,
		projections: deps.Projections,
		router:      deps.Router,
	}
}

func taskRequest() TaskRequest {
	return TaskRequest{
		TenantID:  "tenant-1",
		AppID:     "nwc",
		TaskName:  "Generate monthly report",
		Objective: "generate the monthly operations report",
	}
}

func TestOrchestrateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*TaskRequest)
	}{
		{"missing tenant", func(r *TaskRequest) { r.TenantID = "" }},
		{"missing app", func(r *TaskRequest) { r.AppID = "" }},
		{"no name or objective", func(r *TaskRequest) { r.TaskName = ""; r.Objective = "" }},
		{"priority out of range", func(r *TaskRequest) { r.Priority = 11 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := taskRequest()
			tt.mutate(&req)
			_, err := env.service.Orchestrate(ctx, req)
			assert.Equal(t, types.VALIDATION_FAILED, types.CodeOf(err))
		})
	}

	events, err := env.events.Query(ctx, eventstore.NewFilter())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOrchestrateCapabilityMatch(t *testing.T) {
	env := newTestEnv(t, nil)

	req := taskRequest()
	req.RequiredCapabilities = []string{"medical_ai"}
	resp, err := env.service.Orchestrate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "healthcare_specialists", resp.AssignedTeam)
	// Default priority 5 is the normal band: round(90 * 0.9).
	assert.Equal(t, 81, resp.EstimatedDuration)
	assert.Equal(t, projection.TaskStatusAssigned, resp.Status)
	assert.Equal(t, 1, env.router.Load("healthcare_specialists"))

	// Next steps come from the assigned team's catalog.
	assert.Equal(t, nextStepsFor("healthcare_specialists"), resp.NextSteps)
}

func TestOrchestrateAppTypeFallback(t *testing.T) {
	env := newTestEnv(t, nil)

	req := taskRequest()
	req.AppID = "iris"
	resp, err := env.service.Orchestrate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "vision_computational", resp.AssignedTeam)
	// round(30 * 0.9)
	assert.Equal(t, 27, resp.EstimatedDuration)
}

func TestOrchestrateCategoryRouting(t *testing.T) {
	env := newTestEnv(t, nil)

	req := taskRequest()
	req.AppID = "some-new-app"
	req.Category = "design"
	resp, err := env.service.Orchestrate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "creative_design", resp.AssignedTeam)
}

func TestOrchestrateDefaultTeam(t *testing.T) {
	env := newTestEnv(t, nil)

	req := taskRequest()
	req.AppID = "some-new-app"
	resp, err := env.service.Orchestrate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, routing.DefaultTeam, resp.AssignedTeam)
}

func TestOrchestrateEventsAndReadModel(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp, err := env.service.Orchestrate(ctx, taskRequest())
	require.NoError(t, err)

	events, err := env.events.Query(ctx, eventstore.NewFilter().WithAggregateID(resp.TaskID))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, eventstore.EventOrchestrationStarted, events[0].Type)
	assert.Equal(t, eventstore.EventTaskAssigned, events[1].Type)
	assert.Equal(t, events[0].ID.String(), events[1].CausationID)

	task, err := env.projections.GetTask(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, projection.TaskStatusAssigned, task.TaskStatus)
	assert.Equal(t, resp.AssignedTeam, task.AssignedTeam)
	assert.Equal(t, resp.EstimatedDuration, task.EstimatedDuration)
}

type stubRefiner struct {
	refined string
	err     error
}

func (r stubRefiner) Refine(context.Context, string) (string, error) {
	return r.refined, r.err
}

func TestOrchestrateRefinedObjective(t *testing.T) {
	env := newTestEnv(t, func(deps *Dependencies) {
		deps.Refiner = stubRefiner{refined: "compile and distribute the monthly operations report"}
	})

	resp, err := env.service.Orchestrate(context.Background(), taskRequest())
	require.NoError(t, err)
	assert.Equal(t, "compile and distribute the monthly operations report", resp.RefinedObjective)
}

func TestOrchestrateRefinerFailureFallsBack(t *testing.T) {
	env := newTestEnv(t, func(deps *Dependencies) {
		deps.Refiner = stubRefiner{err: errors.New("model timeout")}
	})

	req := taskRequest()
	resp, err := env.service.Orchestrate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.Objective, resp.RefinedObjective)
}

func TestOrchestrateTeamAtCapacity(t *testing.T) {
	table := &routing.CapabilityTable{
		Teams: []routing.Team{{
			Name:               "tiny_team",
			Capabilities:       []string{"niche_skill"},
			AvgResponseSeconds: 20,
			MaxConcurrent:      1,
		}},
	}
	require.NoError(t, table.Validate())
	env := newTestEnv(t, func(deps *Dependencies) {
		deps.Router = routing.NewRouter(table)
	})
	ctx := context.Background()

	req := taskRequest()
	req.RequiredCapabilities = []string{"niche_skill"}
	first, err := env.service.Orchestrate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "tiny_team", first.AssignedTeam)

	_, err = env.service.Orchestrate(ctx, req)
	require.Error(t, err)
	assert.Equal(t, types.TEAM_UNAVAILABLE, types.CodeOf(err))
	assert.True(t, types.IsRetryable(err))

	// The rejection left an OrchestrationFailed event behind.
	events, err := env.events.Query(ctx, eventstore.NewFilter().
		WithEventTypes(eventstore.EventOrchestrationFailed))
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestCompleteTaskRefreshesPlanProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	planID := types.NewID().String()
	now := time.Now().UTC()
	require.NoError(t, env.projections.UpsertPlan(ctx, projection.PlanRow{
		PlanID:     planID,
		TenantID:   "tenant-1",
		AppID:      "nwc",
		PlanName:   "monthly reporting",
		PlanType:   "workflow",
		PlanStatus: projection.PlanStatusActive,
		TotalTasks: 2,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	var taskIDs []string
	for _, name := range []string{"collect data", "write report"} {
		req := taskRequest()
		req.TaskName = name
		req.ParentPlanID = planID
		resp, err := env.service.Orchestrate(ctx, req)
		require.NoError(t, err)
		taskIDs = append(taskIDs, resp.TaskID)
	}
	assert.Equal(t, 2, env.router.Load(routing.DefaultTeam))

	require.NoError(t, env.service.CompleteTask(ctx, TaskResult{
		TenantID: "tenant-1", AppID: "nwc", TaskID: taskIDs[0],
	}))

	task, err := env.projections.GetTask(ctx, taskIDs[0])
	require.NoError(t, err)
	assert.Equal(t, projection.TaskStatusCompleted, task.TaskStatus)

	plan, err := env.projections.GetPlan(ctx, planID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, plan.Progress, 0.01)
	assert.Equal(t, 1, env.router.Load(routing.DefaultTeam))

	// Failing the second task releases its slot but does not advance
	// progress.
	require.NoError(t, env.service.FailTask(ctx, TaskResult{
		TenantID: "tenant-1", AppID: "nwc", TaskID: taskIDs[1], Error: "team rejected the task",
	}))
	plan, err = env.projections.GetPlan(ctx, planID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, plan.Progress, 0.01)
	assert.Equal(t, 0, env.router.Load(routing.DefaultTeam))

	events, err := env.events.Query(ctx, eventstore.NewFilter().
		WithEventTypes(eventstore.EventTaskCompleted, eventstore.EventTaskFailed))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestFinishTaskUnknownTask(t *testing.T) {
	env := newTestEnv(t, nil)
	err := env.service.CompleteTask(context.Background(), TaskResult{
		TenantID: "t", AppID: "a", TaskID: types.NewID().String(),
	})
	assert.Equal(t, types.TASK_NOT_FOUND, types.CodeOf(err))
}

// syncExecutor resolves assignments immediately.
type syncExecutor struct {
	mu          sync.Mutex
	assignments []Assignment
	err         error
}

func (e *syncExecutor) Execute(_ context.Context, assignment Assignment) (*ExecutionResult, error) {
	e.mu.Lock()
	e.assignments = append(e.assignments, assignment)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return &ExecutionResult{
		TaskID: assignment.TaskID,
		Output: map[string]any{"summary": "done"},
	}, nil
}

// recordingCallback captures notifications.
type recordingCallback struct {
	mu       sync.Mutex
	urls     []string
	payloads []any
}

func (c *recordingCallback) Notify(url string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls = append(c.urls, url)
	c.payloads = append(c.payloads, payload)
}

func TestExecutorDispatchCompletes(t *testing.T) {
	executor := &syncExecutor{}
	callback := &recordingCallback{}
	env := newTestEnv(t, func(deps *Dependencies) {
		deps.Executor = executor
		deps.Callback = callback
	})
	ctx := context.Background()

	req := taskRequest()
	req.CallbackURL = "https://example.test/hooks/tasks"
	resp, err := env.service.Orchestrate(ctx, req)
	require.NoError(t, err)
	env.service.Wait()

	task, err := env.projections.GetTask(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, projection.TaskStatusCompleted, task.TaskStatus)
	assert.Equal(t, 0, env.router.Load(resp.AssignedTeam))

	require.Len(t, executor.assignments, 1)
	assert.Equal(t, resp.TaskID, executor.assignments[0].TaskID)

	// The callback hears about the assignment first, then the outcome.
	require.Len(t, callback.urls, 2)
	assert.Equal(t, "https://example.test/hooks/tasks", callback.urls[0])
	assert.Equal(t, "https://example.test/hooks/tasks", callback.urls[1])
	assignment := callback.payloads[0].(*OrchestrationResponse)
	assert.Equal(t, resp.TaskID, assignment.TaskID)
	outcome := callback.payloads[1].(TaskResult)
	assert.Equal(t, resp.TaskID, outcome.TaskID)
	assert.Empty(t, outcome.Error)
}

func TestOrchestrateNotifiesCallbackWithoutExecutor(t *testing.T) {
	callback := &recordingCallback{}
	env := newTestEnv(t, func(deps *Dependencies) {
		deps.Callback = callback
	})

	req := taskRequest()
	req.CallbackURL = "https://example.test/hooks/tasks"
	resp, err := env.service.Orchestrate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, callback.urls, 1)
	assert.Equal(t, "https://example.test/hooks/tasks", callback.urls[0])
	notified := callback.payloads[0].(*OrchestrationResponse)
	assert.Equal(t, resp.TaskID, notified.TaskID)
	assert.Equal(t, resp.AssignedTeam, notified.AssignedTeam)
}

func TestOrchestrateSkipsCallbackWithoutURL(t *testing.T) {
	callback := &recordingCallback{}
	env := newTestEnv(t, func(deps *Dependencies) {
		deps.Callback = callback
	})

	_, err := env.service.Orchestrate(context.Background(), taskRequest())
	require.NoError(t, err)
	assert.Empty(t, callback.urls)
}

func TestExecutorDispatchFailureMarksTaskFailed(t *testing.T) {
	executor := &syncExecutor{err: errors.New("team endpoint down")}
	env := newTestEnv(t, func(deps *Dependencies) {
		deps.Executor = executor
	})
	ctx := context.Background()

	resp, err := env.service.Orchestrate(ctx, taskRequest())
	require.NoError(t, err)
	env.service.Wait()

	task, err := env.projections.GetTask(ctx, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, projection.TaskStatusFailed, task.TaskStatus)

	events, err := env.events.Query(ctx, eventstore.NewFilter().
		WithEventTypes(eventstore.EventTaskFailed))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "team endpoint down", events[0].Payload["error"])
}
