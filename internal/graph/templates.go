package graph

import "strings"

// PlanType selects the phase template used to build a task graph.
type PlanType string

const (
	PlanTypeWorkflow     PlanType = "workflow"
	PlanTypeProject      PlanType = "project"
	PlanTypeTaskSequence PlanType = "task_sequence"
)

// DefaultPlanType is used when a request carries an unrecognized plan
// type.
const DefaultPlanType = PlanTypeProject

// ParsePlanType normalizes a plan type string, defaulting unknown values
// to DefaultPlanType.
func ParsePlanType(s string) PlanType {
	switch PlanType(strings.ToLower(strings.TrimSpace(s))) {
	case PlanTypeWorkflow:
		return PlanTypeWorkflow
	case PlanTypeProject:
		return PlanTypeProject
	case PlanTypeTaskSequence:
		return PlanTypeTaskSequence
	default:
		return DefaultPlanType
	}
}

// IsKnownPlanType reports whether s names one of the supported plan
// types exactly.
func IsKnownPlanType(s string) bool {
	switch PlanType(strings.ToLower(strings.TrimSpace(s))) {
	case PlanTypeWorkflow, PlanTypeProject, PlanTypeTaskSequence:
		return true
	}
	return false
}

// Task categories produced by the phase templates.
const (
	CategoryAnalysis    = "analysis"
	CategoryDesign      = "design"
	CategoryDevelopment = "development"
	CategoryContent     = "content"
)

// Complexity multipliers applied to template base durations.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// ComplexityMultiplier returns the duration multiplier for a complexity
// tag. Unrecognized tags are treated as moderate.
func ComplexityMultiplier(complexity string) float64 {
	switch strings.ToLower(strings.TrimSpace(complexity)) {
	case ComplexitySimple:
		return 0.7
	case ComplexityComplex:
		return 1.4
	default:
		return 1.0
	}
}

// phase is one step of a plan-type template.
type phase struct {
	name         string
	category     string
	baseDuration int
}

// template is an ordered list of phases. Chained templates link each
// phase to its immediate predecessor; unchained templates rely on the
// category heuristics in the builder.
type template struct {
	phases  []phase
	chained bool
}

// workflowTemplate is a linear five-phase pipeline.
var workflowTemplate = template{
	chained: true,
	phases: []phase{
		{name: "Requirements Gathering", category: CategoryAnalysis, baseDuration: 20},
		{name: "Process Analysis", category: CategoryAnalysis, baseDuration: 30},
		{name: "Workflow Design", category: CategoryDesign, baseDuration: 45},
		{name: "Implementation", category: CategoryDevelopment, baseDuration: 60},
		{name: "Testing & Validation", category: CategoryAnalysis, baseDuration: 30},
	},
}

// projectTemplate covers a full project lifecycle; dependencies come
// from the category heuristics rather than strict chaining.
var projectTemplate = template{
	phases: []phase{
		{name: "Project Planning", category: CategoryAnalysis, baseDuration: 25},
		{name: "Concept Development", category: CategoryDesign, baseDuration: 40},
		{name: "Design & Prototyping", category: CategoryDesign, baseDuration: 50},
		{name: "Implementation", category: CategoryDevelopment, baseDuration: 70},
		{name: "Quality Assurance", category: CategoryAnalysis, baseDuration: 35},
		{name: "Documentation", category: CategoryContent, baseDuration: 30},
	},
}

// sequenceTemplate is three generic steps executed strictly in order.
var sequenceTemplate = template{
	chained: true,
	phases: []phase{
		{name: "Task 1", category: "", baseDuration: 30},
		{name: "Task 2", category: "", baseDuration: 25},
		{name: "Task 3", category: CategoryAnalysis, baseDuration: 20},
	},
}

// PhaseCount returns the number of phases the plan type's template
// produces.
func PhaseCount(planType PlanType) int {
	return len(templateFor(planType).phases)
}

// templateFor returns the phase template for a plan type.
func templateFor(planType PlanType) template {
	switch planType {
	case PlanTypeWorkflow:
		return workflowTemplate
	case PlanTypeTaskSequence:
		return sequenceTemplate
	default:
		return projectTemplate
	}
}
