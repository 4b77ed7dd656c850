// Package schedule derives execution order, critical path, and
// parallelization opportunities from a task graph.
package schedule

import (
	"fmt"
	"sort"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/graph"
)

// Thresholds for risk and optimization heuristics, in seconds.
const (
	longTaskThreshold  = 90
	splitTaskThreshold = 60
)

// teamLoadRatio above which a rebalancing suggestion is emitted.
const teamLoadRatio = 0.4

// Analysis is the scheduling summary for one task graph.
type Analysis struct {
	ExecutionLevels [][]string `json:"execution_levels"`
	CriticalPath    []string   `json:"critical_path"`
	TotalDuration   int        `json:"total_duration"`
	ParallelGroups  [][]string `json:"parallel_groups"`
	RiskFactors     []string   `json:"risk_factors"`
	Suggestions     []string   `json:"optimization_suggestions"`
}

// Analyzer computes schedule analyses. It is stateless and safe for
// concurrent use.
type Analyzer struct{}

// NewAnalyzer creates a schedule analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze computes execution levels, the critical path, and derived
// heuristics for the graph. The graph is acyclic by construction, so
// the level assignment always terminates.
func (a *Analyzer) Analyze(g *graph.Graph) *Analysis {
	analysis := &Analysis{
		ExecutionLevels: [][]string{},
		CriticalPath:    []string{},
		ParallelGroups:  [][]string{},
		RiskFactors:     []string{},
		Suggestions:     []string{},
	}
	if g == nil || g.Len() == 0 {
		return analysis
	}

	levels := a.executionLevels(g)
	analysis.ExecutionLevels = levels

	analysis.CriticalPath = a.criticalPath(g)
	analysis.TotalDuration = pathDuration(g, analysis.CriticalPath)
	if analysis.TotalDuration == 0 {
		// Degenerate graph, fall back to the serial total.
		for _, node := range g.Nodes() {
			analysis.TotalDuration += node.DurationSeconds
		}
	}

	for _, level := range levels {
		if len(level) > 1 {
			group := make([]string, len(level))
			copy(group, level)
			analysis.ParallelGroups = append(analysis.ParallelGroups, group)
		}
	}

	analysis.RiskFactors = a.riskFactors(g)
	analysis.Suggestions = a.suggestions(g, analysis.ParallelGroups)
	return analysis
}

// executionLevels partitions node ids into levels where
// level(n) = max(level(p) for p in predecessors) + 1, sources at level
// zero. Within a level, ids keep graph insertion order.
func (a *Analyzer) executionLevels(g *graph.Graph) [][]string {
	remaining := make(map[string]int, g.Len())
	for _, id := range g.NodeIDs() {
		remaining[id] = len(g.Predecessors(id))
	}

	frontier := g.Sources()
	var levels [][]string
	for len(frontier) > 0 {
		level := make([]string, len(frontier))
		copy(level, frontier)
		levels = append(levels, level)

		var next []string
		for _, id := range frontier {
			for _, succ := range g.Successors(id) {
				remaining[succ]--
				if remaining[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		frontier = sortByInsertion(g, next)
	}
	return levels
}

// criticalPath returns the node ids on the longest path by cumulative
// duration, in execution order. Ties resolve to the earliest-inserted
// node so repeated analysis of the same graph is deterministic.
func (a *Analyzer) criticalPath(g *graph.Graph) []string {
	order := topoOrder(g)

	// longest[id] is the max cumulative duration of any path ending at id.
	longest := make(map[string]int, g.Len())
	prev := make(map[string]string, g.Len())

	for _, id := range order {
		best := 0
		bestPred := ""
		for _, p := range g.Predecessors(id) {
			if longest[p] > best || (longest[p] == best && bestPred == "") {
				best = longest[p]
				bestPred = p
			}
		}
		longest[id] = best + g.Node(id).DurationSeconds
		prev[id] = bestPred
	}

	endID := ""
	endTotal := -1
	for _, id := range order {
		if longest[id] > endTotal {
			endTotal = longest[id]
			endID = id
		}
	}
	if endID == "" {
		return []string{}
	}

	var reversed []string
	for id := endID; id != ""; id = prev[id] {
		reversed = append(reversed, id)
	}
	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

func (a *Analyzer) riskFactors(g *graph.Graph) []string {
	risks := []string{}

	if sources := g.Sources(); len(sources) == 1 {
		risks = append(risks, fmt.Sprintf(
			"single entry task %q gates the entire plan", g.Node(sources[0]).Name))
	}

	for _, node := range g.Nodes() {
		if node.DurationSeconds > longTaskThreshold {
			risks = append(risks, fmt.Sprintf(
				"task %q runs longer than %ds and may delay dependents", node.Name, longTaskThreshold))
		}
	}

	teams := make(map[string]bool)
	for _, node := range g.Nodes() {
		teams[node.AssignedTeam] = true
	}
	if len(teams) == 1 {
		risks = append(risks, "all tasks route to a single team")
	}

	return risks
}

func (a *Analyzer) suggestions(g *graph.Graph, parallelGroups [][]string) []string {
	suggestions := []string{}

	if len(parallelGroups) > 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"%d task groups can execute in parallel", len(parallelGroups)))
	}

	for _, node := range g.Nodes() {
		if node.DurationSeconds > splitTaskThreshold {
			suggestions = append(suggestions, fmt.Sprintf(
				"consider splitting task %q into smaller units", node.Name))
		}
	}

	loads := make(map[string]int)
	for _, node := range g.Nodes() {
		loads[node.AssignedTeam]++
	}
	for _, team := range sortedKeys(loads) {
		if float64(loads[team]) > teamLoadRatio*float64(g.Len()) {
			suggestions = append(suggestions, fmt.Sprintf(
				"team %s carries %d of %d tasks, consider rebalancing", team, loads[team], g.Len()))
		}
	}

	return suggestions
}

// pathDuration sums durations along a node id path.
func pathDuration(g *graph.Graph, path []string) int {
	total := 0
	for _, id := range path {
		if node := g.Node(id); node != nil {
			total += node.DurationSeconds
		}
	}
	return total
}

// topoOrder returns node ids in a topological order that respects graph
// insertion order among ready nodes.
func topoOrder(g *graph.Graph) []string {
	remaining := make(map[string]int, g.Len())
	for _, id := range g.NodeIDs() {
		remaining[id] = len(g.Predecessors(id))
	}

	ready := g.Sources()
	order := make([]string, 0, g.Len())
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		var unlocked []string
		for _, succ := range g.Successors(id) {
			remaining[succ]--
			if remaining[succ] == 0 {
				unlocked = append(unlocked, succ)
			}
		}
		ready = append(ready, sortByInsertion(g, unlocked)...)
	}
	return order
}

// sortByInsertion orders the ids by their position in the graph's
// insertion order.
func sortByInsertion(g *graph.Graph, ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	pos := make(map[string]int, g.Len())
	for i, id := range g.NodeIDs() {
		pos[id] = i
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.SliceStable(sorted, func(i, j int) bool {
		return pos[sorted[i]] < pos[sorted[j]]
	})
	return sorted
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
