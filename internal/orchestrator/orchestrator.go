// Package orchestrator routes individual tasks to capability-matched
// teams, records each transition in the event log, and reports outcomes
// back to callers.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/eventstore"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/projection"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/routing"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// TaskRequest asks for one task to be routed and executed.
type TaskRequest struct {
	TenantID             string         `json:"tenant_id"`
	AppID                string         `json:"app_id"`
	TaskID               string         `json:"task_id,omitempty"`
	TaskName             string         `json:"task_name"`
	Objective            string         `json:"objective"`
	Category             string         `json:"task_category,omitempty"`
	Priority             int            `json:"priority,omitempty"`
	RequiredCapabilities []string       `json:"required_capabilities,omitempty"`
	AppType              string         `json:"app_type,omitempty"`
	ParentPlanID         string         `json:"parent_plan_id,omitempty"`
	CallbackURL          string         `json:"callback_url,omitempty"`
	Payload              map[string]any `json:"payload,omitempty"`
	CorrelationID        string         `json:"correlation_id,omitempty"`
}

// Validate checks the request before any event is emitted.
func (r *TaskRequest) Validate() error {
	if r.TenantID == "" || r.AppID == "" {
		return types.NewError(types.VALIDATION_FAILED, "task request requires tenant and app identifiers")
	}
	if r.TaskName == "" && r.Objective == "" {
		return types.NewError(types.VALIDATION_FAILED, "task request requires a name or an objective")
	}
	if r.Priority < 0 || r.Priority > 10 {
		return types.NewError(types.VALIDATION_FAILED, "task priority must be between 0 and 10")
	}
	return nil
}

// OrchestrationResponse reports the routing decision for a task.
type OrchestrationResponse struct {
	TaskID            string    `json:"task_id"`
	TaskName          string    `json:"task_name"`
	Status            string    `json:"status"`
	AssignedTeam      string    `json:"assigned_team"`
	EstimatedDuration int       `json:"estimated_duration"`
	RefinedObjective  string    `json:"refined_objective"`
	NextSteps         []string  `json:"next_steps"`
	AssignedAt        time.Time `json:"assigned_at"`
}

// TaskResult is an externally reported task outcome.
type TaskResult struct {
	TenantID string         `json:"tenant_id"`
	AppID    string         `json:"app_id"`
	TaskID   string         `json:"task_id"`
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Service routes tasks to teams.
type Service struct {
	events      eventstore.Store
	projections projection.Store
	router      *routing.Router
	refiner     Refiner
	executor    TeamExecutor
	callback    CallbackNotifier
	logger      *slog.Logger

	wg sync.WaitGroup
}

// Dependencies carries the service's collaborators. Executor and
// Callback are optional; a nil Refiner behaves as NoopRefiner.
type Dependencies struct {
	Events      eventstore.Store
	Projections projection.Store
	Router      *routing.Router
	Refiner     Refiner
	Executor    TeamExecutor
	Callback    CallbackNotifier
	Logger      *slog.Logger
}

// NewService creates an orchestration service.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	refiner := deps.Refiner
	if refiner == nil {
		refiner = NoopRefiner{}
	}
	router := deps.Router
	if router == nil {
		router = routing.NewRouter(nil)
	}
	return &Service{
		events:      deps.Events,
		projections: deps.Projections,
		router:      router,
		refiner:     refiner,
		executor:    deps.Executor,
		callback:    deps.Callback,
		logger:      logger,
	}
}

// Orchestrate routes one task: it emits OrchestrationStarted, refines
// the objective (falling back to the original on any refiner error),
// resolves the team, reserves a capacity slot, emits TaskAssigned, and
// updates the task read model. A caller-supplied callback URL is
// notified with the assignment response fire-and-forget. When an
// executor is configured the assignment is dispatched asynchronously,
// the outcome is recorded through CompleteTask or FailTask, and the
// callback is notified again with the result.
func (s *Service) Orchestrate(ctx context.Context, req TaskRequest) (*OrchestrationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = types.NewID().String()
	}
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = types.NewID().String()
	}
	taskName := req.TaskName
	if taskName == "" {
		taskName = req.Objective
	}

	startedID, err := s.events.Append(ctx, eventstore.AppendInput{
		TenantID:      req.TenantID,
		AppID:         req.AppID,
		Type:          eventstore.EventOrchestrationStarted,
		AggregateType: eventstore.AggregateTask,
		AggregateID:   taskID,
		CorrelationID: correlationID,
		Payload: map[string]any{
			"task_id":   taskID,
			"task_name": taskName,
			"objective": req.Objective,
		},
	})
	if err != nil {
		return nil, err
	}
	causationID := startedID.String()

	objective := req.Objective
	if objective == "" {
		objective = taskName
	}
	refined, err := s.refiner.Refine(ctx, objective)
	if err != nil || refined == "" {
		if err != nil {
			s.logger.Warn("objective refinement failed, using original", "task_id", taskID, "error", err)
		}
		refined = objective
	}

	appType := req.AppType
	if appType == "" {
		appType = appTypeByApp[req.AppID]
	}
	team := s.router.DetermineBestTeam(req.RequiredCapabilities, appType)
	if req.Category != "" && len(req.RequiredCapabilities) == 0 && appType == "" {
		team = s.router.MapCategoryToTeam(req.Category)
	}

	priority := req.Priority
	if priority == 0 {
		priority = 5
	}

	base := routing.MinEstimateSeconds
	if profile := s.router.Table().Team(team); profile != nil {
		base = profile.AvgResponseSeconds
	}
	estimated := s.router.EstimateDuration(base, priority)

	if !s.router.AcquireSlot(team) {
		unavailable := types.NewRetryableError(types.TEAM_UNAVAILABLE,
			fmt.Sprintf("team %s is at capacity", team))
		s.recordOrchestrationFailure(ctx, req, taskID, causationID, correlationID, unavailable)
		return nil, unavailable
	}

	now := time.Now().UTC()
	_, err = s.events.Append(ctx, eventstore.AppendInput{
		TenantID:      req.TenantID,
		AppID:         req.AppID,
		Type:          eventstore.EventTaskAssigned,
		AggregateType: eventstore.AggregateTask,
		AggregateID:   taskID,
		CausationID:   causationID,
		CorrelationID: correlationID,
		Payload: map[string]any{
			"task_id":            taskID,
			"task_name":          taskName,
			"task_category":      req.Category,
			"task_priority":      priority,
			"parent_plan_id":     req.ParentPlanID,
			"assigned_team":      team,
			"estimated_duration": estimated,
			"refined_objective":  refined,
		},
	})
	if err != nil {
		s.router.ReleaseSlot(team)
		return nil, err
	}

	err = s.projections.UpsertTask(ctx, projection.TaskRow{
		TaskID:            taskID,
		TenantID:          req.TenantID,
		AppID:             req.AppID,
		TaskName:          taskName,
		TaskCategory:      req.Category,
		TaskStatus:        projection.TaskStatusAssigned,
		TaskPriority:      priority,
		ParentPlanID:      req.ParentPlanID,
		AssignedTeam:      team,
		EstimatedDuration: estimated,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		s.router.ReleaseSlot(team)
		return nil, err
	}

	response := &OrchestrationResponse{
		TaskID:            taskID,
		TaskName:          taskName,
		Status:            projection.TaskStatusAssigned,
		AssignedTeam:      team,
		EstimatedDuration: estimated,
		RefinedObjective:  refined,
		NextSteps:         nextStepsFor(team),
		AssignedAt:        now,
	}

	s.logger.Info("task assigned",
		"task_id", taskID,
		"team", team,
		"estimated_duration", estimated)

	if s.callback != nil && req.CallbackURL != "" {
		s.callback.Notify(req.CallbackURL, response)
	}
	if s.executor != nil {
		s.dispatch(req, response, refined)
	}
	return response, nil
}

// dispatch hands the assignment to the executor in the background and
// records the outcome.
func (s *Service) dispatch(req TaskRequest, response *OrchestrationResponse, refined string) {
	assignment := Assignment{
		TaskID:       response.TaskID,
		TaskName:     response.TaskName,
		Objective:    refined,
		Category:     req.Category,
		Team:         response.AssignedTeam,
		Priority:     req.Priority,
		ParentPlanID: req.ParentPlanID,
		Payload:      req.Payload,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result, err := s.executor.Execute(context.Background(), assignment)
		outcome := TaskResult{
			TenantID: req.TenantID,
			AppID:    req.AppID,
			TaskID:   response.TaskID,
		}
		if err != nil {
			outcome.Error = err.Error()
			if ferr := s.FailTask(context.Background(), outcome); ferr != nil {
				s.logger.Error("failed to record task failure", "task_id", outcome.TaskID, "error", ferr)
			}
		} else {
			if result != nil {
				outcome.Output = result.Output
			}
			if cerr := s.CompleteTask(context.Background(), outcome); cerr != nil {
				s.logger.Error("failed to record task completion", "task_id", outcome.TaskID, "error", cerr)
			}
		}

		if s.callback != nil {
			s.callback.Notify(req.CallbackURL, outcome)
		}
	}()
}

// Wait blocks until all in-flight dispatches have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// CompleteTask records an externally reported success: TaskCompleted in
// the log, the task row completed, the team slot released, and the
// parent plan's progress recomputed.
func (s *Service) CompleteTask(ctx context.Context, result TaskResult) error {
	return s.finishTask(ctx, result, eventstore.EventTaskCompleted, projection.TaskStatusCompleted)
}

// FailTask records an externally reported failure.
func (s *Service) FailTask(ctx context.Context, result TaskResult) error {
	return s.finishTask(ctx, result, eventstore.EventTaskFailed, projection.TaskStatusFailed)
}

func (s *Service) finishTask(ctx context.Context, result TaskResult, eventType, status string) error {
	if result.TaskID == "" {
		return types.NewError(types.VALIDATION_FAILED, "task result requires a task id")
	}

	task, err := s.projections.GetTask(ctx, result.TaskID)
	if err != nil {
		return err
	}

	payload := map[string]any{"task_id": result.TaskID}
	if result.Error != "" {
		payload["error"] = result.Error
	}
	if result.Output != nil {
		payload["output"] = result.Output
	}

	_, err = s.events.Append(ctx, eventstore.AppendInput{
		TenantID:      result.TenantID,
		AppID:         result.AppID,
		Type:          eventType,
		AggregateType: eventstore.AggregateTask,
		AggregateID:   result.TaskID,
		Payload:       payload,
	})
	if err != nil {
		return err
	}

	task.TaskStatus = status
	task.UpdatedAt = time.Now().UTC()
	if err := s.projections.UpsertTask(ctx, *task); err != nil {
		return err
	}

	s.router.ReleaseSlot(task.AssignedTeam)

	if task.ParentPlanID != "" {
		if err := s.refreshPlanProgress(ctx, task.ParentPlanID); err != nil {
			s.logger.Warn("failed to refresh plan progress", "plan_id", task.ParentPlanID, "error", err)
		}
	}
	return nil
}

// refreshPlanProgress recomputes a plan's completion percentage from
// its task rows.
func (s *Service) refreshPlanProgress(ctx context.Context, planID string) error {
	plan, err := s.projections.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	tasks, err := s.projections.ListPlanTasks(ctx, planID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	completed := 0
	for _, task := range tasks {
		if task.TaskStatus == projection.TaskStatusCompleted {
			completed++
		}
	}
	plan.Progress = float64(completed) / float64(len(tasks)) * 100
	plan.UpdatedAt = time.Now().UTC()
	return s.projections.UpsertPlan(ctx, *plan)
}

func (s *Service) recordOrchestrationFailure(ctx context.Context, req TaskRequest, taskID, causationID, correlationID string, cause error) {
	_, err := s.events.Append(ctx, eventstore.AppendInput{
		TenantID:      req.TenantID,
		AppID:         req.AppID,
		Type:          eventstore.EventOrchestrationFailed,
		AggregateType: eventstore.AggregateTask,
		AggregateID:   taskID,
		CausationID:   causationID,
		CorrelationID: correlationID,
		Payload: map[string]any{
			"task_id": taskID,
			"error":   cause.Error(),
		},
	})
	if err != nil {
		s.logger.Error("failed to record orchestration failure", "task_id", taskID, "error", err)
	}
}
