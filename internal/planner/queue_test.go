package planner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/analyzer"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/config"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/database"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/eventstore"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/flowcontrol"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/graph"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/projection"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/routing"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/schedule"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// gatedAnalyzer blocks every call until released, to hold workers busy.
type gatedAnalyzer struct {
	gate     chan struct{}
	delegate analyzer.ObjectiveAnalyzer
}

func (a *gatedAnalyzer) Analyze(ctx context.Context, objective, hint string) (*analyzer.Analysis, error) {
	<-a.gate
	return a.delegate.Analyze(ctx, objective, hint)
}

func newQueueEnv(t *testing.T, cfg config.PlannerConfig, mutate func(*Dependencies)) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })

	deps := Dependencies{
		Events:      eventstore.NewDBStore(db),
		Projections: projection.NewDBStore(db),
		Analyzer:    analyzer.NewKeywordAnalyzer(),
		Builder:     graph.NewBuilder(routing.NewRouter(nil)),
		Scheduler:   schedule.NewAnalyzer(),
	}
	if mutate != nil {
		mutate(&deps)
	}

	service := NewService(deps, cfg)
	t.Cleanup(service.Close)
	return &testEnv{service: service, events: deps.Events, projections: deps.Projections}
}

func waitForPlan(t *testing.T, env *testEnv, planID string) *projection.PlanRow {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		plan, err := env.projections.GetPlan(context.Background(), planID)
		if err == nil {
			return plan
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("plan %s never appeared in the read model", planID)
	return nil
}

func TestSubmitProcessesAsynchronously(t *testing.T) {
	env := newQueueEnv(t, config.PlannerConfig{QueueSize: 10, Workers: 2}, nil)

	planID, err := env.service.Submit(workflowRequest())
	require.NoError(t, err)
	require.False(t, planID.IsZero())

	plan := waitForPlan(t, env, planID.String())
	assert.Equal(t, projection.PlanStatusActive, plan.PlanStatus)
	assert.Equal(t, 5, plan.TotalTasks)
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	env := newQueueEnv(t, config.PlannerConfig{QueueSize: 10, Workers: 1}, nil)

	_, err := env.service.Submit(PlanRequest{TenantID: "t", AppID: "a"})
	assert.Equal(t, types.VALIDATION_FAILED, types.CodeOf(err))
}

func TestSubmitQueueFull(t *testing.T) {
	gate := make(chan struct{})
	env := newQueueEnv(t, config.PlannerConfig{QueueSize: 1, Workers: 1}, func(deps *Dependencies) {
		deps.Analyzer = &gatedAnalyzer{gate: gate, delegate: analyzer.NewKeywordAnalyzer()}
	})
	defer close(gate)

	// First submission occupies the worker, second fills the queue.
	req := workflowRequest()
	_, err := env.service.Submit(req)
	require.NoError(t, err)

	// Wait for the worker to pick up the first submission so the queue
	// slot frees deterministically.
	require.Eventually(t, func() bool {
		req2 := workflowRequest()
		req2.Objective = "automate the expense reporting process"
		_, err := env.service.Submit(req2)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	req3 := workflowRequest()
	req3.Objective = "automate the payroll process"
	_, err = env.service.Submit(req3)
	require.Error(t, err)
	assert.Equal(t, types.QUEUE_FULL, types.CodeOf(err))
	assert.True(t, types.IsRetryable(err))
}

func TestSubmitAfterClose(t *testing.T) {
	env := newQueueEnv(t, config.PlannerConfig{QueueSize: 5, Workers: 1}, nil)
	env.service.Close()

	_, err := env.service.Submit(workflowRequest())
	assert.Equal(t, types.SERVICE_CLOSED, types.CodeOf(err))
	assert.Equal(t, "closed", env.service.Health().Status)
}

func TestSubmitDeduplicates(t *testing.T) {
	env := newQueueEnv(t, config.PlannerConfig{QueueSize: 10, Workers: 1}, func(deps *Dependencies) {
		deps.Deduper = flowcontrol.NewDeduper(time.Minute)
	})

	_, err := env.service.Submit(workflowRequest())
	require.NoError(t, err)

	_, err = env.service.Submit(workflowRequest())
	assert.Equal(t, types.VALIDATION_FAILED, types.CodeOf(err))

	// A different objective is not a duplicate.
	other := workflowRequest()
	other.Objective = "automate contract renewals process"
	_, err = env.service.Submit(other)
	assert.NoError(t, err)
}

func TestSubmitRateLimited(t *testing.T) {
	env := newQueueEnv(t, config.PlannerConfig{QueueSize: 10, Workers: 1}, func(deps *Dependencies) {
		deps.Limiter = flowcontrol.NewLimiter(map[flowcontrol.Tier]flowcontrol.TierLimit{
			flowcontrol.TierP1: {PerSecond: 0.0001, Burst: 1},
		})
	})

	req := workflowRequest()
	req.Objective = "automate process one"
	_, err := env.service.Submit(req)
	require.NoError(t, err)

	req.Objective = "automate process two"
	_, err = env.service.Submit(req)
	require.Error(t, err)
	assert.Equal(t, types.VALIDATION_FAILED, types.CodeOf(err))
	assert.True(t, types.IsRetryable(err))

	// Another tenant is unaffected.
	req.TenantID = "tenant-2"
	req.Objective = "automate process three"
	_, err = env.service.Submit(req)
	assert.NoError(t, err)
}

func TestHealthSnapshot(t *testing.T) {
	env := newQueueEnv(t, config.PlannerConfig{QueueSize: 7, Workers: 2}, nil)

	health := env.service.Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 7, health.QueueCapacity)
	assert.Equal(t, 2, health.Workers)
	assert.GreaterOrEqual(t, health.QueueDepth, 0)
}
