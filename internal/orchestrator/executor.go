package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// Assignment is the work handed to a team executor.
type Assignment struct {
	TaskID       string         `json:"task_id"`
	TaskName     string         `json:"task_name"`
	Objective    string         `json:"objective"`
	Category     string         `json:"task_category,omitempty"`
	Team         string         `json:"assigned_team"`
	Priority     int            `json:"priority"`
	ParentPlanID string         `json:"parent_plan_id,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// ExecutionResult is what a team reports back for an assignment.
type ExecutionResult struct {
	TaskID string         `json:"task_id"`
	Output map[string]any `json:"output,omitempty"`
}

// TeamExecutor delivers an assignment to a team and waits for its
// result. Implementations must honor context cancellation.
type TeamExecutor interface {
	Execute(ctx context.Context, assignment Assignment) (*ExecutionResult, error)
}

// breakerState tracks consecutive failures per team.
type breakerState struct {
	failures int
	openedAt time.Time
}

// HTTPTeamExecutor posts assignments to per-team HTTP endpoints with a
// bounded retry budget and a per-team circuit breaker. A team whose
// breaker is open is rejected immediately with a retryable
// TEAM_UNAVAILABLE until the cooldown elapses.
type HTTPTeamExecutor struct {
	endpoints map[string]string // team -> URL
	client    *http.Client
	retries   int

	breakerThreshold int
	breakerCooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*breakerState
	now      func() time.Time
}

// HTTPExecutorConfig configures an HTTPTeamExecutor.
type HTTPExecutorConfig struct {
	Endpoints        map[string]string
	Timeout          time.Duration
	Retries          int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// NewHTTPTeamExecutor creates an executor over per-team endpoints.
func NewHTTPTeamExecutor(cfg HTTPExecutorConfig) *HTTPTeamExecutor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	return &HTTPTeamExecutor{
		endpoints:        cfg.Endpoints,
		client:           &http.Client{Timeout: cfg.Timeout},
		retries:          cfg.Retries,
		breakerThreshold: cfg.BreakerThreshold,
		breakerCooldown:  cfg.BreakerCooldown,
		breakers:         make(map[string]*breakerState),
		now:              time.Now,
	}
}

// Execute posts the assignment to the team's endpoint, retrying
// transient failures up to the configured budget.
func (e *HTTPTeamExecutor) Execute(ctx context.Context, assignment Assignment) (*ExecutionResult, error) {
	endpoint, ok := e.endpoints[assignment.Team]
	if !ok {
		return nil, types.NewError(types.TEAM_UNAVAILABLE,
			fmt.Sprintf("no endpoint configured for team %s", assignment.Team))
	}
	if !e.allow(assignment.Team) {
		return nil, types.NewRetryableError(types.TEAM_UNAVAILABLE,
			fmt.Sprintf("team %s circuit breaker is open", assignment.Team))
	}

	body, err := json.Marshal(assignment)
	if err != nil {
		return nil, types.WrapError(types.VALIDATION_FAILED, "failed to encode assignment", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				e.recordFailure(assignment.Team)
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		result, err := e.post(ctx, endpoint, body)
		if err == nil {
			e.recordSuccess(assignment.Team)
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	e.recordFailure(assignment.Team)
	return nil, types.WrapError(types.TEAM_UNAVAILABLE,
		fmt.Sprintf("team %s did not accept the assignment", assignment.Team), lastErr)
}

func (e *HTTPTeamExecutor) post(ctx context.Context, endpoint string, body []byte) (*ExecutionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("team endpoint returned status %d", resp.StatusCode)
	}

	var result ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode team response: %w", err)
	}
	return &result, nil
}

// allow reports whether the team's breaker admits a call, closing it
// again after the cooldown.
func (e *HTTPTeamExecutor) allow(team string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[team]
	if !ok || state.failures < e.breakerThreshold {
		return true
	}
	if e.now().Sub(state.openedAt) >= e.breakerCooldown {
		// Half-open: admit one probe.
		state.failures = e.breakerThreshold - 1
		return true
	}
	return false
}

func (e *HTTPTeamExecutor) recordFailure(team string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[team]
	if !ok {
		state = &breakerState{}
		e.breakers[team] = state
	}
	state.failures++
	if state.failures == e.breakerThreshold {
		state.openedAt = e.now()
	}
}

func (e *HTTPTeamExecutor) recordSuccess(team string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.breakers, team)
}

var _ TeamExecutor = (*HTTPTeamExecutor)(nil)
