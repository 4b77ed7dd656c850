package graph

import (
	"math"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// TeamResolver maps a task category to the team that should execute it.
// The routing package provides the production implementation.
type TeamResolver interface {
	MapCategoryToTeam(category string) string
}

// BuildInput carries the objective-analysis output and request context
// the builder needs to instantiate a task graph.
type BuildInput struct {
	PlanType       PlanType
	TaskCategories []string
	Complexity     string
	KeyConcepts    []string
	AppID          string
	Constraints    map[string]any
}

// Builder instantiates task graphs from plan-type templates.
type Builder struct {
	resolver TeamResolver
}

// NewBuilder creates a graph builder using the given team resolver.
func NewBuilder(resolver TeamResolver) *Builder {
	return &Builder{resolver: resolver}
}

// Build generates the task nodes and dependency edges for the input.
//
// Each phase of the selected template becomes one node with
// duration = round(base x complexity multiplier) and
// priority = max(1, basePriority - phaseIndex), where basePriority is
// the phase count so earlier phases always rank strictly higher.
// Chained templates link successive phases; for the rest, dependency
// edges come from category heuristics (design after the first analysis
// task, development after the first design task). The heuristics are a
// best-effort approximation, not general dependency inference.
func (b *Builder) Build(input BuildInput) (*Graph, error) {
	tpl := templateFor(input.PlanType)
	multiplier := ComplexityMultiplier(input.Complexity)
	basePriority := len(tpl.phases)

	g := New()

	var prevID string
	for i, ph := range tpl.phases {
		category := ph.category
		if category == "" {
			category = b.sequenceCategory(input.TaskCategories, i)
		}
		if input.PlanType == PlanTypeProject && ph.name == "Concept Development" {
			category = primaryCategory(input.TaskCategories)
		}

		node := &TaskNode{
			ID:              types.NewID(),
			Name:            ph.name,
			Category:        category,
			DurationSeconds: int(math.Round(float64(ph.baseDuration) * multiplier)),
			AssignedTeam:    b.resolver.MapCategoryToTeam(category),
			Priority:        maxInt(MinPriority, basePriority-i),
			Inputs: map[string]any{
				"key_concepts": input.KeyConcepts,
				"complexity":   normalizedComplexity(input.Complexity),
			},
			Metadata: map[string]any{
				"phase":        i + 1,
				"is_milestone": i == len(tpl.phases)-1,
			},
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}

		if tpl.chained && prevID != "" {
			if err := g.AddEdge(prevID, node.ID.String()); err != nil {
				return nil, err
			}
		}
		prevID = node.ID.String()
	}

	if !tpl.chained {
		if err := b.applyCategoryHeuristics(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// applyCategoryHeuristics adds the analysis-before-design and
// design-before-development edges when both categories are present.
func (b *Builder) applyCategoryHeuristics(g *Graph) error {
	firstAnalysis := firstByCategory(g, CategoryAnalysis)
	firstDesign := firstByCategory(g, CategoryDesign)

	if firstAnalysis != "" && firstDesign != "" {
		for _, node := range g.Nodes() {
			if node.Category == CategoryDesign {
				if err := g.AddEdge(firstAnalysis, node.ID.String()); err != nil {
					return err
				}
			}
		}
	}
	if firstDesign != "" {
		for _, node := range g.Nodes() {
			if node.Category == CategoryDevelopment {
				if err := g.AddEdge(firstDesign, node.ID.String()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// sequenceCategory selects categories for the generic sequence steps:
// the first detected category for step one, the last for step two.
func (b *Builder) sequenceCategory(categories []string, phaseIndex int) string {
	if len(categories) == 0 {
		return "general"
	}
	if phaseIndex == 0 {
		return categories[0]
	}
	return categories[len(categories)-1]
}

// primaryCategory returns the first non-generic detected category, or
// design when none was detected.
func primaryCategory(categories []string) string {
	for _, c := range categories {
		if c != "" && c != "general" {
			return c
		}
	}
	return CategoryDesign
}

func firstByCategory(g *Graph, category string) string {
	for _, node := range g.Nodes() {
		if node.Category == category {
			return node.ID.String()
		}
	}
	return ""
}

func normalizedComplexity(complexity string) string {
	switch complexity {
	case ComplexitySimple, ComplexityComplex:
		return complexity
	default:
		return ComplexityModerate
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
