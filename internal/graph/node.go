// Package graph builds the dependency-ordered task graph for a plan.
// Nodes and edges are validated at insertion time: an edge that would
// close a cycle is rejected immediately rather than detected later, so a
// Graph is acyclic by construction.
package graph

import (
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// Priority bounds for task nodes.
const (
	MinPriority = 1
	MaxPriority = 10
)

// TaskNode is a single task in a plan's DAG.
type TaskNode struct {
	ID              types.ID       `json:"task_id"`
	Name            string         `json:"task_name"`
	Category        string         `json:"task_category"`
	Inputs          map[string]any `json:"inputs,omitempty"`
	Dependencies    []string       `json:"dependencies"`
	DurationSeconds int            `json:"duration_seconds"`
	AssignedTeam    string         `json:"assigned_team"`
	Priority        int            `json:"priority"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Validate checks the node's structural invariants.
func (n *TaskNode) Validate() error {
	if n.ID.IsZero() {
		return types.NewError(types.VALIDATION_FAILED, "task node requires an id")
	}
	if n.Name == "" {
		return types.NewError(types.VALIDATION_FAILED, "task node requires a name")
	}
	if n.DurationSeconds <= 0 {
		return types.NewError(types.INVALID_TASK_DURATION, "task duration must be positive")
	}
	if n.Priority < MinPriority || n.Priority > MaxPriority {
		return types.NewError(types.VALIDATION_FAILED, "task priority must be between 1 and 10")
	}
	return nil
}
