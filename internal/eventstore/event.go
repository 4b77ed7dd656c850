// Package eventstore persists every state transition as an immutable,
// append-only event log. Events are never updated or deleted; all mutable
// state lives in projections derived from this log (see the projection
// package). Ordering is monotonic per aggregate: by event timestamp, with
// the insertion sequence breaking ties.
package eventstore

import (
	"time"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// Event is a single immutable record in the log.
type Event struct {
	ID            types.ID       `json:"event_id"`
	TenantID      string         `json:"tenant_id"`
	AppID         string         `json:"app_id"`
	Type          string         `json:"event_type"`
	Payload       map[string]any `json:"payload,omitempty"`
	AggregateType string         `json:"aggregate_type,omitempty"`
	AggregateID   string         `json:"aggregate_id,omitempty"`
	CausationID   string         `json:"causation_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Timestamp     time.Time      `json:"event_timestamp"`

	// Seq is the storage-assigned insertion sequence. Zero until persisted.
	Seq int64 `json:"-"`
}

// Well-known event types emitted by the planning and orchestration
// services.
const (
	EventPlanCreationStarted  = "PlanCreationStarted"
	EventPlanCreated          = "PlanCreated"
	EventPlanCreationFailed   = "PlanCreationFailed"
	EventOrchestrationStarted = "OrchestrationStarted"
	EventOrchestrationFailed  = "OrchestrationFailed"
	EventTaskAssigned         = "TaskAssigned"
	EventTaskCompleted        = "TaskCompleted"
	EventTaskFailed           = "TaskFailed"
)

// Aggregate types recorded alongside events.
const (
	AggregatePlan = "Plan"
	AggregateTask = "Task"
)

// AppendInput carries the caller-supplied fields for a new event. The
// store assigns the event ID, sequence, and timestamp (when zero).
type AppendInput struct {
	TenantID      string
	AppID         string
	Type          string
	Payload       map[string]any
	AggregateType string
	AggregateID   string
	CausationID   string
	CorrelationID string
	Timestamp     time.Time
}

// Filter provides filtering options for event queries. Results are always
// ordered by (event_timestamp, seq) ascending.
type Filter struct {
	TenantID    string
	AppID       string
	AggregateID string
	EventTypes  []string
	After       *time.Time
	Before      *time.Time
	Limit       int
	Offset      int
}

// NewFilter creates an empty filter with default pagination.
func NewFilter() *Filter {
	return &Filter{Limit: 100}
}

// WithTenantApp filters events for a tenant/app pair.
func (f *Filter) WithTenantApp(tenantID, appID string) *Filter {
	f.TenantID = tenantID
	f.AppID = appID
	return f
}

// WithAggregateID filters events for a specific aggregate.
func (f *Filter) WithAggregateID(aggregateID string) *Filter {
	f.AggregateID = aggregateID
	return f
}

// WithEventTypes filters by event type.
func (f *Filter) WithEventTypes(eventTypes ...string) *Filter {
	f.EventTypes = eventTypes
	return f
}

// WithTimeRange filters events within [after, before].
func (f *Filter) WithTimeRange(after, before time.Time) *Filter {
	f.After = &after
	f.Before = &before
	return f
}

// WithPagination sets limit and offset.
func (f *Filter) WithPagination(limit, offset int) *Filter {
	f.Limit = limit
	f.Offset = offset
	return f
}
