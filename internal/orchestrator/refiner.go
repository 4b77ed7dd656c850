package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/analyzer"
)

// defaultRefineTimeout bounds one refinement call.
const defaultRefineTimeout = 10 * time.Second

const refinePrompt = `Rewrite the objective below as one concise, actionable
instruction for an execution team. Reply with the rewritten instruction only.

Objective: %s`

// Refiner rewrites a raw objective into a sharper instruction before a
// task is routed. Implementations must be safe for concurrent use.
type Refiner interface {
	Refine(ctx context.Context, objective string) (string, error)
}

// NoopRefiner returns objectives unchanged.
type NoopRefiner struct{}

func (NoopRefiner) Refine(_ context.Context, objective string) (string, error) {
	return objective, nil
}

// ModelRefiner asks a language model to sharpen the objective. Callers
// are expected to fall back to the original objective on error; the
// orchestrator does this and logs the failure.
type ModelRefiner struct {
	model   analyzer.TextModel
	timeout time.Duration
	logger  *slog.Logger
}

// NewModelRefiner wraps a model. A non-positive timeout uses the
// default.
func NewModelRefiner(model analyzer.TextModel, timeout time.Duration, logger *slog.Logger) *ModelRefiner {
	if timeout <= 0 {
		timeout = defaultRefineTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelRefiner{model: model, timeout: timeout, logger: logger}
}

// Refine returns the model's rewrite, or an error for the caller's
// fallback path. Empty rewrites are errors so a misbehaving model never
// blanks an objective.
func (r *ModelRefiner) Refine(ctx context.Context, objective string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(refinePrompt, objective)),
	}
	resp, err := r.model.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("refiner returned no choices")
	}

	refined := strings.TrimSpace(resp.Choices[0].Content)
	if refined == "" {
		return "", fmt.Errorf("refiner returned an empty objective")
	}
	return refined, nil
}
