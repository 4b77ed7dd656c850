package analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/graph"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// maxKeyConcepts caps the number of concepts reported per objective.
const maxKeyConcepts = 10

// Keyword tables for objective interpretation. Ordered slices keep
// detection deterministic.
var (
	planTypeKeywords = []struct {
		planType graph.PlanType
		words    []string
	}{
		{graph.PlanTypeWorkflow, []string{"workflow", "process", "automate", "automation", "pipeline"}},
		{graph.PlanTypeTaskSequence, []string{"sequence", "steps", "checklist", "series"}},
		{graph.PlanTypeProject, []string{"project", "build", "create", "develop", "launch", "design"}},
	}

	categoryKeywords = []struct {
		category string
		words    []string
	}{
		{"analysis", []string{"analyze", "analysis", "research", "evaluate", "review", "assess", "audit"}},
		{"design", []string{"design", "prototype", "mockup", "wireframe", "ui", "ux", "layout"}},
		{"development", []string{"build", "implement", "develop", "code", "integrate", "deploy"}},
		{"content", []string{"write", "content", "copy", "article", "documentation", "blog"}},
		{"vision", []string{"image", "photo", "video", "detect", "recognize", "vision"}},
		{"medical", []string{"medical", "patient", "clinical", "diagnosis", "health"}},
		{"marketing", []string{"brand", "campaign", "marketing", "audience", "engagement"}},
	}

	simpleKeywords  = []string{"simple", "quick", "basic", "small", "minimal"}
	complexKeywords = []string{"complex", "enterprise", "large", "comprehensive", "multiple", "scalable", "end-to-end"}

	// capabilityByCategory feeds the orchestrator's team matching.
	capabilityByCategory = map[string]string{
		"analysis":    "data_analysis",
		"design":      "design_generation",
		"development": "workflow_automation",
		"content":     "content_creation",
		"vision":      "computer_vision",
		"medical":     "medical_ai",
		"marketing":   "branding_ai",
	}

	stopWords = map[string]bool{
		"a": true, "an": true, "and": true, "are": true, "as": true,
		"at": true, "be": true, "by": true, "for": true, "from": true,
		"in": true, "into": true, "is": true, "it": true, "of": true,
		"on": true, "or": true, "our": true, "that": true, "the": true,
		"this": true, "to": true, "we": true, "with": true, "you": true,
		"your": true,
	}
)

// KeywordAnalyzer interprets objectives with keyword heuristics. It is
// stateless and safe for concurrent use.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates a keyword analyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Analyze derives the plan signals from the objective text. An
// explicitly hinted known plan type overrides detection; detection
// itself defaults to the project template when nothing matches.
func (a *KeywordAnalyzer) Analyze(_ context.Context, objective, planTypeHint string) (*Analysis, error) {
	if strings.TrimSpace(objective) == "" {
		return nil, types.NewError(types.ANALYSIS_FAILED, "objective is empty")
	}

	lowered := strings.ToLower(objective)

	planType := graph.DefaultPlanType
	if graph.IsKnownPlanType(planTypeHint) {
		planType = graph.ParsePlanType(planTypeHint)
	} else {
		planType = detectPlanType(lowered)
	}

	categories := detectCategories(lowered)

	analysis := &Analysis{
		PlanType:             planType,
		TaskCategories:       categories,
		Complexity:           detectComplexity(lowered),
		KeyConcepts:          extractKeyConcepts(lowered),
		RequiredCapabilities: capabilitiesFor(categories),
		EstimatedPhases:      graph.PhaseCount(planType),
	}
	return analysis, nil
}

func detectPlanType(lowered string) graph.PlanType {
	for _, entry := range planTypeKeywords {
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				return entry.planType
			}
		}
	}
	return graph.DefaultPlanType
}

func detectCategories(lowered string) []string {
	var categories []string
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				categories = append(categories, entry.category)
				break
			}
		}
	}
	if len(categories) == 0 {
		categories = []string{"analysis"}
	}
	return categories
}

func detectComplexity(lowered string) string {
	for _, word := range complexKeywords {
		if strings.Contains(lowered, word) {
			return graph.ComplexityComplex
		}
	}
	for _, word := range simpleKeywords {
		if strings.Contains(lowered, word) {
			return graph.ComplexitySimple
		}
	}
	return graph.ComplexityModerate
}

// extractKeyConcepts returns up to maxKeyConcepts distinct non-stopword
// terms, most frequent first, first occurrence breaking ties.
func extractKeyConcepts(lowered string) []string {
	words := strings.FieldsFunc(lowered, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' && r != '_'
	})

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, word := range words {
		if len(word) < 3 || stopWords[word] {
			continue
		}
		if _, seen := counts[word]; !seen {
			firstSeen[word] = i
		}
		counts[word]++
	}

	concepts := make([]string, 0, len(counts))
	for word := range counts {
		concepts = append(concepts, word)
	}
	sort.Slice(concepts, func(i, j int) bool {
		if counts[concepts[i]] != counts[concepts[j]] {
			return counts[concepts[i]] > counts[concepts[j]]
		}
		return firstSeen[concepts[i]] < firstSeen[concepts[j]]
	})

	if len(concepts) > maxKeyConcepts {
		concepts = concepts[:maxKeyConcepts]
	}
	return concepts
}

func capabilitiesFor(categories []string) []string {
	capabilities := make([]string, 0, len(categories))
	for _, category := range categories {
		if capability, ok := capabilityByCategory[category]; ok {
			capabilities = append(capabilities, capability)
		}
	}
	return capabilities
}
