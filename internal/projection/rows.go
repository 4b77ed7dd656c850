// Package projection maintains the mutable read models derived from the
// event log: one row per plan and one row per task, keyed by id and
// upserted idempotently (last write wins). The projection is eventually
// consistent with the log; services update it synchronously in the same
// request for simplicity, and Rebuild can reconstruct it from the log
// after a crash between the two writes.
package projection

import "time"

// Plan lifecycle statuses kept in the read model.
const (
	PlanStatusActive = "active"
	PlanStatusFailed = "failed"
)

// Task lifecycle statuses kept in the read model.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusAssigned   = "assigned"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// PlanRow is the queryable state of one plan. The field set is fixed;
// persistence statements are never built from caller-supplied maps.
type PlanRow struct {
	PlanID        string    `json:"plan_id"`
	TenantID      string    `json:"tenant_id"`
	AppID         string    `json:"app_id"`
	PlanName      string    `json:"plan_name"`
	PlanType      string    `json:"plan_type"`
	PlanStatus    string    `json:"plan_status"`
	Objective     string    `json:"objective"`
	TotalTasks    int       `json:"total_tasks"`
	TotalDuration int       `json:"total_duration"`
	Progress      float64   `json:"progress_percentage"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaskRow is the queryable state of one task.
type TaskRow struct {
	TaskID            string    `json:"task_id"`
	TenantID          string    `json:"tenant_id"`
	AppID             string    `json:"app_id"`
	TaskName          string    `json:"task_name"`
	TaskCategory      string    `json:"task_category"`
	TaskStatus        string    `json:"task_status"`
	TaskPriority      int       `json:"task_priority"`
	ParentPlanID      string    `json:"parent_plan_id,omitempty"`
	AssignedTeam      string    `json:"assigned_team"`
	EstimatedDuration int       `json:"estimated_duration"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
