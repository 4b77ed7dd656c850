package projection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/database"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/eventstore"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// Store is the read-model contract: keyed, idempotent upserts and
// point lookups. Duplicate upserts for the same id leave exactly one row.
type Store interface {
	UpsertPlan(ctx context.Context, row PlanRow) error
	UpsertTask(ctx context.Context, row TaskRow) error
	GetPlan(ctx context.Context, planID string) (*PlanRow, error)
	GetTask(ctx context.Context, taskID string) (*TaskRow, error)
	ListPlanTasks(ctx context.Context, planID string) ([]*TaskRow, error)

	// Rebuild replays events into the read models, reconstructing them
	// from the log after a crash left the projection behind.
	Rebuild(ctx context.Context, events []*eventstore.Event) error
}

// DBStore implements Store on the shared SQLite database.
type DBStore struct {
	db *database.DB
}

// NewDBStore creates a database-backed projection store.
func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{db: db}
}

// UpsertPlan inserts or updates a plan row. Last write wins.
func (s *DBStore) UpsertPlan(ctx context.Context, row PlanRow) error {
	if row.PlanID == "" {
		return types.NewError(types.VALIDATION_FAILED, "plan row requires a plan id")
	}

	query := `
		INSERT INTO plan_read_model (
			plan_id, tenant_id, app_id, plan_name, plan_type, plan_status,
			objective, total_tasks, total_duration, progress_percentage
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (plan_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			app_id = excluded.app_id,
			plan_name = excluded.plan_name,
			plan_type = excluded.plan_type,
			plan_status = excluded.plan_status,
			objective = excluded.objective,
			total_tasks = excluded.total_tasks,
			total_duration = excluded.total_duration,
			progress_percentage = excluded.progress_percentage,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		row.PlanID, row.TenantID, row.AppID, row.PlanName, row.PlanType,
		row.PlanStatus, row.Objective, row.TotalTasks, row.TotalDuration, row.Progress,
	)
	if err != nil {
		return types.WrapError(types.PERSISTENCE_FAILED, "failed to upsert plan row", err)
	}
	return nil
}

// UpsertTask inserts or updates a task row. Last write wins.
func (s *DBStore) UpsertTask(ctx context.Context, row TaskRow) error {
	if row.TaskID == "" {
		return types.NewError(types.VALIDATION_FAILED, "task row requires a task id")
	}

	query := `
		INSERT INTO task_read_model (
			task_id, tenant_id, app_id, task_name, task_category, task_status,
			task_priority, parent_plan_id, assigned_team, estimated_duration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			app_id = excluded.app_id,
			task_name = excluded.task_name,
			task_category = excluded.task_category,
			task_status = excluded.task_status,
			task_priority = excluded.task_priority,
			parent_plan_id = excluded.parent_plan_id,
			assigned_team = excluded.assigned_team,
			estimated_duration = excluded.estimated_duration,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		row.TaskID, row.TenantID, row.AppID, row.TaskName, row.TaskCategory,
		row.TaskStatus, row.TaskPriority, row.ParentPlanID, row.AssignedTeam,
		row.EstimatedDuration,
	)
	if err != nil {
		return types.WrapError(types.PERSISTENCE_FAILED, "failed to upsert task row", err)
	}
	return nil
}

// GetPlan retrieves a plan row by id.
func (s *DBStore) GetPlan(ctx context.Context, planID string) (*PlanRow, error) {
	query := `
		SELECT plan_id, tenant_id, app_id, plan_name, plan_type, plan_status,
		       objective, total_tasks, total_duration, progress_percentage,
		       created_at, updated_at
		FROM plan_read_model WHERE plan_id = ?
	`

	var row PlanRow
	err := s.db.QueryRowContext(ctx, query, planID).Scan(
		&row.PlanID, &row.TenantID, &row.AppID, &row.PlanName, &row.PlanType,
		&row.PlanStatus, &row.Objective, &row.TotalTasks, &row.TotalDuration,
		&row.Progress, &row.CreatedAt, &row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewError(types.PLAN_NOT_FOUND, fmt.Sprintf("plan %s not found", planID))
	}
	if err != nil {
		return nil, types.WrapError(types.PERSISTENCE_FAILED, "failed to load plan row", err)
	}
	return &row, nil
}

// GetTask retrieves a task row by id.
func (s *DBStore) GetTask(ctx context.Context, taskID string) (*TaskRow, error) {
	query := `
		SELECT task_id, tenant_id, app_id, task_name, task_category, task_status,
		       task_priority, COALESCE(parent_plan_id, ''), assigned_team,
		       estimated_duration, created_at, updated_at
		FROM task_read_model WHERE task_id = ?
	`

	var row TaskRow
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&row.TaskID, &row.TenantID, &row.AppID, &row.TaskName, &row.TaskCategory,
		&row.TaskStatus, &row.TaskPriority, &row.ParentPlanID, &row.AssignedTeam,
		&row.EstimatedDuration, &row.CreatedAt, &row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewError(types.TASK_NOT_FOUND, fmt.Sprintf("task %s not found", taskID))
	}
	if err != nil {
		return nil, types.WrapError(types.PERSISTENCE_FAILED, "failed to load task row", err)
	}
	return &row, nil
}

// ListPlanTasks retrieves all task rows belonging to a plan, ordered by
// priority descending then creation time.
func (s *DBStore) ListPlanTasks(ctx context.Context, planID string) ([]*TaskRow, error) {
	query := `
		SELECT task_id, tenant_id, app_id, task_name, task_category, task_status,
		       task_priority, COALESCE(parent_plan_id, ''), assigned_team,
		       estimated_duration, created_at, updated_at
		FROM task_read_model
		WHERE parent_plan_id = ?
		ORDER BY task_priority DESC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, types.WrapError(types.PERSISTENCE_FAILED, "failed to list plan tasks", err)
	}
	defer rows.Close()

	tasks := make([]*TaskRow, 0)
	for rows.Next() {
		var row TaskRow
		err := rows.Scan(
			&row.TaskID, &row.TenantID, &row.AppID, &row.TaskName, &row.TaskCategory,
			&row.TaskStatus, &row.TaskPriority, &row.ParentPlanID, &row.AssignedTeam,
			&row.EstimatedDuration, &row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, types.WrapError(types.PERSISTENCE_FAILED, "failed to scan task row", err)
		}
		tasks = append(tasks, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.PERSISTENCE_FAILED, "error iterating task rows", err)
	}
	return tasks, nil
}

// Ensure DBStore implements Store at compile time.
var _ Store = (*DBStore)(nil)
