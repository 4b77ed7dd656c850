package projection

import (
	"context"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/eventstore"
)

// Rebuild replays events in order and applies the ones that affect the
// read models. Unknown event types are skipped: the log may contain more
// than the projection consumes. Upserts are idempotent, so replaying a
// log over a partially written projection converges to the same state.
func (s *DBStore) Rebuild(ctx context.Context, events []*eventstore.Event) error {
	for _, event := range events {
		if err := s.apply(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) apply(ctx context.Context, event *eventstore.Event) error {
	switch event.Type {
	case eventstore.EventPlanCreated:
		return s.applyPlanCreated(ctx, event)
	case eventstore.EventPlanCreationFailed:
		return s.applyPlanFailed(ctx, event)
	case eventstore.EventTaskAssigned:
		return s.applyTaskAssigned(ctx, event)
	case eventstore.EventTaskCompleted:
		return s.applyTaskStatus(ctx, event, TaskStatusCompleted)
	case eventstore.EventTaskFailed:
		return s.applyTaskStatus(ctx, event, TaskStatusFailed)
	default:
		return nil
	}
}

func (s *DBStore) applyPlanCreated(ctx context.Context, event *eventstore.Event) error {
	p := event.Payload

	row := PlanRow{
		PlanID:        stringField(p, "plan_id", event.AggregateID),
		TenantID:      event.TenantID,
		AppID:         event.AppID,
		PlanName:      stringField(p, "plan_name", ""),
		PlanType:      stringField(p, "plan_type", ""),
		PlanStatus:    PlanStatusActive,
		Objective:     stringField(p, "objective", ""),
		TotalTasks:    intField(p, "total_tasks"),
		TotalDuration: intField(p, "total_duration"),
	}
	if err := s.UpsertPlan(ctx, row); err != nil {
		return err
	}

	// PlanCreated carries the full task list so the projection is
	// recoverable from the log alone.
	tasks, ok := p["tasks"].([]any)
	if !ok {
		return nil
	}
	for _, raw := range tasks {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		taskRow := TaskRow{
			TaskID:            stringField(fields, "task_id", ""),
			TenantID:          event.TenantID,
			AppID:             event.AppID,
			TaskName:          stringField(fields, "task_name", ""),
			TaskCategory:      stringField(fields, "task_category", ""),
			TaskStatus:        TaskStatusPending,
			TaskPriority:      intField(fields, "task_priority"),
			ParentPlanID:      row.PlanID,
			AssignedTeam:      stringField(fields, "assigned_team", ""),
			EstimatedDuration: intField(fields, "estimated_duration"),
		}
		if taskRow.TaskID == "" {
			continue
		}
		if err := s.UpsertTask(ctx, taskRow); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) applyPlanFailed(ctx context.Context, event *eventstore.Event) error {
	planID := stringField(event.Payload, "plan_id", event.AggregateID)
	if planID == "" {
		// Failure before a plan id existed; nothing to project.
		return nil
	}

	existing, err := s.GetPlan(ctx, planID)
	if err != nil {
		// No row yet: record the failure with what the event carries.
		existing = &PlanRow{
			PlanID:    planID,
			TenantID:  event.TenantID,
			AppID:     event.AppID,
			Objective: stringField(event.Payload, "objective", ""),
		}
	}
	existing.PlanStatus = PlanStatusFailed
	return s.UpsertPlan(ctx, *existing)
}

func (s *DBStore) applyTaskAssigned(ctx context.Context, event *eventstore.Event) error {
	p := event.Payload
	taskID := stringField(p, "task_id", event.AggregateID)
	if taskID == "" {
		return nil
	}

	row := TaskRow{
		TaskID:            taskID,
		TenantID:          event.TenantID,
		AppID:             event.AppID,
		TaskName:          stringField(p, "task_name", ""),
		TaskCategory:      stringField(p, "task_category", ""),
		TaskStatus:        TaskStatusAssigned,
		TaskPriority:      intField(p, "task_priority"),
		ParentPlanID:      stringField(p, "parent_plan_id", ""),
		AssignedTeam:      stringField(p, "assigned_team", ""),
		EstimatedDuration: intField(p, "estimated_duration"),
	}
	return s.UpsertTask(ctx, row)
}

func (s *DBStore) applyTaskStatus(ctx context.Context, event *eventstore.Event, status string) error {
	taskID := stringField(event.Payload, "task_id", event.AggregateID)
	if taskID == "" {
		return nil
	}

	existing, err := s.GetTask(ctx, taskID)
	if err != nil {
		existing = &TaskRow{
			TaskID:   taskID,
			TenantID: event.TenantID,
			AppID:    event.AppID,
		}
	}
	existing.TaskStatus = status
	return s.UpsertTask(ctx, *existing)
}

// stringField reads a string out of a JSON-decoded payload.
func stringField(p map[string]any, key, fallback string) string {
	if p == nil {
		return fallback
	}
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intField reads a numeric payload field; JSON decoding yields float64.
func intField(p map[string]any, key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
