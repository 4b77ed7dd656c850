package graph

import (
	"fmt"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// Graph is a directed acyclic graph of task nodes. Node and edge
// insertion order is preserved so that downstream analysis is
// deterministic for identical input.
type Graph struct {
	nodes map[string]*TaskNode
	order []string            // node ids in insertion order
	succ  map[string][]string // edges from -> to
	pred  map[string][]string // reverse edges to -> from
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*TaskNode),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
	}
}

// AddNode inserts a validated node. Duplicate ids are rejected.
func (g *Graph) AddNode(node *TaskNode) error {
	if node == nil {
		return types.NewError(types.VALIDATION_FAILED, "task node cannot be nil")
	}
	if err := node.Validate(); err != nil {
		return err
	}
	id := node.ID.String()
	if _, exists := g.nodes[id]; exists {
		return types.NewError(types.VALIDATION_FAILED, fmt.Sprintf("duplicate task node %s", id))
	}
	g.nodes[id] = node
	g.order = append(g.order, id)
	return nil
}

// AddEdge inserts a dependency edge from -> to, meaning `to` depends on
// `from`. The edge is rejected with DEPENDENCY_CYCLE if it would close a
// cycle, and with MISSING_DEPENDENCY if either endpoint is absent.
// Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return types.NewError(types.MISSING_DEPENDENCY, fmt.Sprintf("edge references unknown source node %s", from))
	}
	if _, ok := g.nodes[to]; !ok {
		return types.NewError(types.MISSING_DEPENDENCY, fmt.Sprintf("edge references unknown destination node %s", to))
	}
	if from == to {
		return types.NewError(types.DEPENDENCY_CYCLE, fmt.Sprintf("self-dependency on node %s", from))
	}
	for _, existing := range g.succ[from] {
		if existing == to {
			return nil
		}
	}
	// from -> to closes a cycle exactly when `from` is already reachable
	// from `to`.
	if g.reaches(to, from) {
		return types.NewError(types.DEPENDENCY_CYCLE,
			fmt.Sprintf("edge %s -> %s would create a dependency cycle", from, to))
	}

	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
	g.nodes[to].Dependencies = append(g.nodes[to].Dependencies, from)
	return nil
}

// reaches reports whether target is reachable from start following
// successor edges, using iterative DFS.
func (g *Graph) reaches(start, target string) bool {
	if start == target {
		return true
	}
	visited := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, next := range g.succ[current] {
			if next == target {
				return true
			}
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *TaskNode {
	return g.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*TaskNode {
	nodes := make([]*TaskNode, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeIDs returns all node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}

// Predecessors returns the ids of nodes that id depends on, in edge
// insertion order.
func (g *Graph) Predecessors(id string) []string {
	return g.pred[id]
}

// Successors returns the ids of nodes depending on id, in edge insertion
// order.
func (g *Graph) Successors(id string) []string {
	return g.succ[id]
}

// Sources returns nodes with no predecessors, in insertion order.
func (g *Graph) Sources() []string {
	sources := make([]string, 0)
	for _, id := range g.order {
		if len(g.pred[id]) == 0 {
			sources = append(sources, id)
		}
	}
	return sources
}

// Sinks returns nodes with no successors, in insertion order.
func (g *Graph) Sinks() []string {
	sinks := make([]string, 0)
	for _, id := range g.order {
		if len(g.succ[id]) == 0 {
			sinks = append(sinks, id)
		}
	}
	return sinks
}

// EdgeCount returns the number of dependency edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, targets := range g.succ {
		count += len(targets)
	}
	return count
}
