package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/graph"
)

// defaultModelTimeout bounds a single model call so plan creation never
// blocks on a slow provider.
const defaultModelTimeout = 10 * time.Second

const analysisPrompt = `Interpret the objective below for task planning.
Respond with a single JSON object and nothing else, using exactly these keys:
  "plan_type": one of "workflow", "project", "task_sequence"
  "task_categories": array drawn from ["analysis","design","development","content","vision","medical","marketing"]
  "complexity": one of "simple", "moderate", "complex"
  "key_concepts": up to 10 short lowercase terms

Objective: %s`

// TextModel is the slice of the langchaingo model surface the analyzer
// needs.
type TextModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ModelAnalyzer asks a language model to interpret the objective and
// falls back to keyword heuristics whenever the model call or its
// output cannot be used. It never fails where the keyword analyzer
// would succeed.
type ModelAnalyzer struct {
	model    TextModel
	fallback *KeywordAnalyzer
	timeout  time.Duration
	logger   *slog.Logger
}

// ModelAnalyzerOption configures a ModelAnalyzer.
type ModelAnalyzerOption func(*ModelAnalyzer)

// WithTimeout overrides the per-call model timeout.
func WithTimeout(d time.Duration) ModelAnalyzerOption {
	return func(a *ModelAnalyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the analyzer's logger.
func WithLogger(logger *slog.Logger) ModelAnalyzerOption {
	return func(a *ModelAnalyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewModelAnalyzer wraps a language model with keyword fallback.
func NewModelAnalyzer(model TextModel, opts ...ModelAnalyzerOption) *ModelAnalyzer {
	a := &ModelAnalyzer{
		model:    model,
		fallback: NewKeywordAnalyzer(),
		timeout:  defaultModelTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze interprets the objective with the model, keeping the hinted
// plan type authoritative and the keyword analyzer as the safety net.
func (a *ModelAnalyzer) Analyze(ctx context.Context, objective, planTypeHint string) (*Analysis, error) {
	keyword, err := a.fallback.Analyze(ctx, objective, planTypeHint)
	if err != nil {
		return nil, err
	}
	if a.model == nil {
		return keyword, nil
	}

	analysis, err := a.callModel(ctx, objective)
	if err != nil {
		a.logger.Warn("model analysis failed, using keyword fallback", "error", err)
		return keyword, nil
	}

	// The caller's hint and the phase estimate stay authoritative.
	if graph.IsKnownPlanType(planTypeHint) {
		analysis.PlanType = graph.ParsePlanType(planTypeHint)
	}
	analysis.EstimatedPhases = graph.PhaseCount(analysis.PlanType)
	if len(analysis.TaskCategories) == 0 {
		analysis.TaskCategories = keyword.TaskCategories
	}
	if len(analysis.KeyConcepts) == 0 {
		analysis.KeyConcepts = keyword.KeyConcepts
	}
	analysis.RequiredCapabilities = capabilitiesFor(analysis.TaskCategories)
	return analysis, nil
}

func (a *ModelAnalyzer) callModel(ctx context.Context, objective string) (*Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(analysisPrompt, objective)),
	}
	resp, err := a.model.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	return parseModelOutput(resp.Choices[0].Content)
}

// parseModelOutput decodes the model's JSON reply, tolerating markdown
// code fences around the object.
func parseModelOutput(content string) (*Analysis, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw struct {
		PlanType       string   `json:"plan_type"`
		TaskCategories []string `json:"task_categories"`
		Complexity     string   `json:"complexity"`
		KeyConcepts    []string `json:"key_concepts"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}

	analysis := &Analysis{
		PlanType:       graph.ParsePlanType(raw.PlanType),
		TaskCategories: raw.TaskCategories,
		Complexity:     normalizeComplexity(raw.Complexity),
		KeyConcepts:    raw.KeyConcepts,
	}
	if len(analysis.KeyConcepts) > maxKeyConcepts {
		analysis.KeyConcepts = analysis.KeyConcepts[:maxKeyConcepts]
	}
	return analysis, nil
}

func normalizeComplexity(complexity string) string {
	switch strings.ToLower(strings.TrimSpace(complexity)) {
	case graph.ComplexitySimple:
		return graph.ComplexitySimple
	case graph.ComplexityComplex:
		return graph.ComplexityComplex
	default:
		return graph.ComplexityModerate
	}
}
