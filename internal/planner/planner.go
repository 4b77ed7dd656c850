// Package planner turns objectives into dependency-ordered task plans.
// Every state transition is appended to the event log before the read
// models are updated, so the projections can always be rebuilt from the
// log.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/analyzer"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/config"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/eventstore"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/flowcontrol"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/graph"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/projection"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/schedule"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// maxDerivedNameLen caps plan names derived from the objective text.
const maxDerivedNameLen = 64

// PlanRequest is one plan creation request.
type PlanRequest struct {
	PlanID        string         `json:"plan_id,omitempty"`
	TenantID      string         `json:"tenant_id"`
	AppID         string         `json:"app_id"`
	PlanName      string         `json:"plan_name,omitempty"`
	PlanType      string         `json:"plan_type,omitempty"`
	Objective     string         `json:"objective"`
	Priority      int            `json:"priority,omitempty"`
	Constraints   map[string]any `json:"constraints,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// Validate checks the request before any event is emitted.
func (r *PlanRequest) Validate() error {
	if r.TenantID == "" || r.AppID == "" {
		return types.NewError(types.VALIDATION_FAILED, "plan request requires tenant and app identifiers")
	}
	if r.Objective == "" {
		return types.NewError(types.VALIDATION_FAILED, "plan request requires an objective")
	}
	if r.PlanType != "" && !graph.IsKnownPlanType(r.PlanType) {
		return types.NewError(types.UNKNOWN_PLAN_TYPE,
			fmt.Sprintf("plan type %q is not one of workflow, project, task_sequence", r.PlanType))
	}
	if r.PlanID != "" {
		if _, err := types.ParseID(r.PlanID); err != nil {
			return types.NewError(types.VALIDATION_FAILED,
				fmt.Sprintf("plan id %q is not a valid id", r.PlanID))
		}
	}
	return nil
}

// planID returns the caller-supplied plan id or a fresh one. Reusing an
// id makes resubmission idempotent at the read-model level: the plan row
// is keyed by id, so the upsert converges on one row.
func (r *PlanRequest) planID() types.ID {
	if r.PlanID != "" {
		if id, err := types.ParseID(r.PlanID); err == nil {
			return id
		}
	}
	return types.NewID()
}

// PlannedTask is one task of a created plan as reported to callers and
// recorded in the PlanCreated event.
type PlannedTask struct {
	TaskID            string   `json:"task_id"`
	TaskName          string   `json:"task_name"`
	TaskCategory      string   `json:"task_category"`
	Dependencies      []string `json:"dependencies"`
	TaskPriority      int      `json:"task_priority"`
	AssignedTeam      string   `json:"assigned_team"`
	EstimatedDuration int      `json:"estimated_duration"`
}

// PlanningResponse is the result of a successful plan creation.
type PlanningResponse struct {
	PlanID        string             `json:"plan_id"`
	PlanName      string             `json:"plan_name"`
	PlanType      graph.PlanType     `json:"plan_type"`
	Status        string             `json:"status"`
	Objective     string             `json:"objective"`
	Complexity    string             `json:"complexity"`
	TotalTasks    int                `json:"total_tasks"`
	TotalDuration int                `json:"total_duration"`
	Tasks         []PlannedTask      `json:"tasks"`
	Schedule      *schedule.Analysis `json:"schedule"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Service coordinates plan creation: analysis, graph building, schedule
// analysis, event logging, and projection updates.
type Service struct {
	events      eventstore.Store
	projections projection.Store
	analyzer    analyzer.ObjectiveAnalyzer
	builder     *graph.Builder
	scheduler   *schedule.Analyzer
	limiter     *flowcontrol.Limiter
	deduper     *flowcontrol.Deduper
	logger      *slog.Logger

	queue   chan submission
	workers int

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// Dependencies carries the service's collaborators.
type Dependencies struct {
	Events      eventstore.Store
	Projections projection.Store
	Analyzer    analyzer.ObjectiveAnalyzer
	Builder     *graph.Builder
	Scheduler   *schedule.Analyzer
	Limiter     *flowcontrol.Limiter
	Deduper     *flowcontrol.Deduper
	Logger      *slog.Logger
}

// NewService creates a planning service and starts its worker pool.
// Close must be called to drain and stop the workers.
func NewService(deps Dependencies, cfg config.PlannerConfig) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.DefaultConfig().Planner.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = config.DefaultConfig().Planner.Workers
	}

	s := &Service{
		events:      deps.Events,
		projections: deps.Projections,
		analyzer:    deps.Analyzer,
		builder:     deps.Builder,
		scheduler:   deps.Scheduler,
		limiter:     deps.Limiter,
		deduper:     deps.Deduper,
		logger:      logger,
		queue:       make(chan submission, cfg.QueueSize),
		workers:     cfg.Workers,
	}
	s.startWorkers()
	return s
}

// CreatePlan synchronously creates a plan for the request.
//
// The step sequence is fixed: validate, emit PlanCreationStarted,
// analyze the objective, build the task graph, analyze the schedule,
// emit PlanCreated carrying the full task list, then update the read
// models. Failures after the started event emit PlanCreationFailed and
// mark the plan row failed before returning.
func (s *Service) CreatePlan(ctx context.Context, req PlanRequest) (*PlanningResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.createPlan(ctx, req.planID(), req)
}

func (s *Service) createPlan(ctx context.Context, planID types.ID, req PlanRequest) (*PlanningResponse, error) {
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = types.NewID().String()
	}

	startedID, err := s.events.Append(ctx, eventstore.AppendInput{
		TenantID:      req.TenantID,
		AppID:         req.AppID,
		Type:          eventstore.EventPlanCreationStarted,
		AggregateType: eventstore.AggregatePlan,
		AggregateID:   planID.String(),
		CorrelationID: correlationID,
		Payload: map[string]any{
			"plan_id":   planID.String(),
			"objective": req.Objective,
			"plan_type": req.PlanType,
		},
	})
	if err != nil {
		return nil, err
	}
	causationID := startedID.String()

	analysis, err := s.analyzer.Analyze(ctx, req.Objective, req.PlanType)
	if err != nil {
		wrapped := types.WrapError(types.ANALYSIS_FAILED, "objective analysis failed", err)
		s.recordFailure(ctx, planID, req, causationID, correlationID, "analysis", wrapped)
		return nil, wrapped
	}

	taskGraph, err := s.builder.Build(graph.BuildInput{
		PlanType:       analysis.PlanType,
		TaskCategories: analysis.TaskCategories,
		Complexity:     analysis.Complexity,
		KeyConcepts:    analysis.KeyConcepts,
		AppID:          req.AppID,
		Constraints:    req.Constraints,
	})
	if err != nil {
		s.recordFailure(ctx, planID, req, causationID, correlationID, "graph", err)
		return nil, err
	}

	sched := s.scheduler.Analyze(taskGraph)
	planName := req.PlanName
	if planName == "" {
		planName = deriveName(req.Objective)
	}
	now := time.Now().UTC()

	tasks := plannedTasks(taskGraph)
	_, err = s.events.Append(ctx, eventstore.AppendInput{
		TenantID:      req.TenantID,
		AppID:         req.AppID,
		Type:          eventstore.EventPlanCreated,
		AggregateType: eventstore.AggregatePlan,
		AggregateID:   planID.String(),
		CausationID:   causationID,
		CorrelationID: correlationID,
		Payload: map[string]any{
			"plan_id":        planID.String(),
			"plan_name":      planName,
			"plan_type":      string(analysis.PlanType),
			"objective":      req.Objective,
			"complexity":     analysis.Complexity,
			"total_tasks":    len(tasks),
			"total_duration": sched.TotalDuration,
			"tasks":          taskPayloads(tasks),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.projectPlan(ctx, planID, req, planName, analysis, sched, tasks, now); err != nil {
		return nil, err
	}

	s.logger.Info("plan created",
		"plan_id", planID.String(),
		"plan_type", analysis.PlanType,
		"total_tasks", len(tasks),
		"total_duration", sched.TotalDuration)

	return &PlanningResponse{
		PlanID:        planID.String(),
		PlanName:      planName,
		PlanType:      analysis.PlanType,
		Status:        projection.PlanStatusActive,
		Objective:     req.Objective,
		Complexity:    analysis.Complexity,
		TotalTasks:    len(tasks),
		TotalDuration: sched.TotalDuration,
		Tasks:         tasks,
		Schedule:      sched,
		CreatedAt:     now,
	}, nil
}

// recordFailure appends PlanCreationFailed and marks the plan row
// failed. Persistence errors here are logged, not returned; the
// original failure stays authoritative.
func (s *Service) recordFailure(ctx context.Context, planID types.ID, req PlanRequest, causationID, correlationID, stage string, cause error) {
	_, err := s.events.Append(ctx, eventstore.AppendInput{
		TenantID:      req.TenantID,
		AppID:         req.AppID,
		Type:          eventstore.EventPlanCreationFailed,
		AggregateType: eventstore.AggregatePlan,
		AggregateID:   planID.String(),
		CausationID:   causationID,
		CorrelationID: correlationID,
		Payload: map[string]any{
			"plan_id": planID.String(),
			"stage":   stage,
			"error":   cause.Error(),
		},
	})
	if err != nil {
		s.logger.Error("failed to record plan failure event", "plan_id", planID.String(), "error", err)
	}

	now := time.Now().UTC()
	err = s.projections.UpsertPlan(ctx, projection.PlanRow{
		PlanID:     planID.String(),
		TenantID:   req.TenantID,
		AppID:      req.AppID,
		PlanName:   req.PlanName,
		PlanType:   req.PlanType,
		PlanStatus: projection.PlanStatusFailed,
		Objective:  req.Objective,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		s.logger.Error("failed to mark plan failed", "plan_id", planID.String(), "error", err)
	}
}

func (s *Service) projectPlan(ctx context.Context, planID types.ID, req PlanRequest, planName string, analysis *analyzer.Analysis, sched *schedule.Analysis, tasks []PlannedTask, now time.Time) error {
	err := s.projections.UpsertPlan(ctx, projection.PlanRow{
		PlanID:        planID.String(),
		TenantID:      req.TenantID,
		AppID:         req.AppID,
		PlanName:      planName,
		PlanType:      string(analysis.PlanType),
		PlanStatus:    projection.PlanStatusActive,
		Objective:     req.Objective,
		TotalTasks:    len(tasks),
		TotalDuration: sched.TotalDuration,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return err
	}

	for _, task := range tasks {
		err := s.projections.UpsertTask(ctx, projection.TaskRow{
			TaskID:            task.TaskID,
			TenantID:          req.TenantID,
			AppID:             req.AppID,
			TaskName:          task.TaskName,
			TaskCategory:      task.TaskCategory,
			TaskStatus:        projection.TaskStatusPending,
			TaskPriority:      task.TaskPriority,
			ParentPlanID:      planID.String(),
			AssignedTeam:      task.AssignedTeam,
			EstimatedDuration: task.EstimatedDuration,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// PlanDetail is a plan row with its tasks.
type PlanDetail struct {
	Plan  projection.PlanRow    `json:"plan"`
	Tasks []*projection.TaskRow `json:"tasks"`
}

// GetPlan returns the read-model state of a plan and its tasks.
func (s *Service) GetPlan(ctx context.Context, planID string) (*PlanDetail, error) {
	plan, err := s.projections.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.projections.ListPlanTasks(ctx, planID)
	if err != nil {
		return nil, err
	}
	return &PlanDetail{Plan: *plan, Tasks: tasks}, nil
}

func plannedTasks(g *graph.Graph) []PlannedTask {
	nodes := g.Nodes()
	tasks := make([]PlannedTask, 0, len(nodes))
	for _, node := range nodes {
		deps := make([]string, len(node.Dependencies))
		copy(deps, node.Dependencies)
		tasks = append(tasks, PlannedTask{
			TaskID:            node.ID.String(),
			TaskName:          node.Name,
			TaskCategory:      node.Category,
			Dependencies:      deps,
			TaskPriority:      node.Priority,
			AssignedTeam:      node.AssignedTeam,
			EstimatedDuration: node.DurationSeconds,
		})
	}
	return tasks
}

func taskPayloads(tasks []PlannedTask) []any {
	payloads := make([]any, 0, len(tasks))
	for _, task := range tasks {
		payloads = append(payloads, map[string]any{
			"task_id":            task.TaskID,
			"task_name":          task.TaskName,
			"task_category":      task.TaskCategory,
			"dependencies":       task.Dependencies,
			"task_priority":      task.TaskPriority,
			"assigned_team":      task.AssignedTeam,
			"estimated_duration": task.EstimatedDuration,
		})
	}
	return payloads
}

func deriveName(objective string) string {
	if len(objective) <= maxDerivedNameLen {
		return objective
	}
	return objective[:maxDerivedNameLen]
}
