package routing

import (
	"math"
	"sync"
)

// Duration multipliers by priority band. High priority tasks get a
// faster lane, low priority tasks absorb slack.
const (
	urgentMultiplier  = 0.7
	normalMultiplier  = 0.9
	relaxedMultiplier = 1.2

	urgentPriorityMax = 2
	normalPriorityMax = 5

	// MinEstimateSeconds floors every estimate so a task never gets a
	// near-zero window.
	MinEstimateSeconds = 10
)

// Router resolves teams for tasks and estimates execution durations.
// Routing decisions are pure functions of the capability table; the
// only mutable state is the per-team load counter.
type Router struct {
	table *CapabilityTable

	mu    sync.Mutex
	loads map[string]int
}

// NewRouter creates a router over the given capability table. A nil
// table uses the built-in roster.
func NewRouter(table *CapabilityTable) *Router {
	if table == nil {
		table = DefaultCapabilityTable()
	}
	return &Router{
		table: table,
		loads: make(map[string]int),
	}
}

// Table returns the router's capability table.
func (r *Router) Table() *CapabilityTable {
	return r.table
}

// MapCategoryToTeam resolves a task category to a team name. Unmapped
// categories fall back to DefaultTeam.
func (r *Router) MapCategoryToTeam(category string) string {
	if team, ok := r.table.CategoryTeams[category]; ok {
		return team
	}
	return DefaultTeam
}

// DetermineBestTeam picks the team for a task: the first roster team
// covering any required capability wins, then the application type
// rule, then DefaultTeam.
func (r *Router) DetermineBestTeam(requiredCapabilities []string, appType string) string {
	for _, capability := range requiredCapabilities {
		if teams := r.table.teamsByCapability(capability); len(teams) > 0 {
			return teams[0]
		}
	}
	if team, ok := r.table.AppTypeTeams[appType]; ok {
		return team
	}
	return DefaultTeam
}

// EstimateDuration scales a base duration by the task's priority band
// and floors the result at MinEstimateSeconds.
func (r *Router) EstimateDuration(baseSeconds, priority int) int {
	multiplier := relaxedMultiplier
	switch {
	case priority <= urgentPriorityMax:
		multiplier = urgentMultiplier
	case priority <= normalPriorityMax:
		multiplier = normalMultiplier
	}
	estimate := int(math.Round(float64(baseSeconds) * multiplier))
	if estimate < MinEstimateSeconds {
		return MinEstimateSeconds
	}
	return estimate
}

// AcquireSlot records an assignment against the team's load counter.
// It reports false when the team is already at its concurrency limit;
// unknown teams have no limit.
func (r *Router) AcquireSlot(team string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry := r.table.Team(team); entry != nil && r.loads[team] >= entry.MaxConcurrent {
		return false
	}
	r.loads[team]++
	return true
}

// ReleaseSlot returns a previously acquired slot.
func (r *Router) ReleaseSlot(team string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loads[team] > 0 {
		r.loads[team]--
	}
}

// Load returns the team's current in-flight assignment count.
func (r *Router) Load(team string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads[team]
}
