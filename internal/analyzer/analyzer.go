// Package analyzer turns a free-text objective into the structured
// signals plan building needs: plan type, task categories, complexity,
// and key concepts.
package analyzer

import (
	"context"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/graph"
)

// Analysis is the structured interpretation of an objective.
type Analysis struct {
	PlanType             graph.PlanType `json:"plan_type"`
	TaskCategories       []string       `json:"task_categories"`
	Complexity           string         `json:"complexity"`
	KeyConcepts          []string       `json:"key_concepts"`
	RequiredCapabilities []string       `json:"required_capabilities"`
	EstimatedPhases      int            `json:"estimated_phases"`
}

// ObjectiveAnalyzer interprets objectives. Implementations must treat
// the plan type hint as authoritative when it names a known plan type.
type ObjectiveAnalyzer interface {
	Analyze(ctx context.Context, objective, planTypeHint string) (*Analysis, error)
}
