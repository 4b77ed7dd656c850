package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

func testNode(name string) *TaskNode {
	return &TaskNode{
		ID:              types.NewID(),
		Name:            name,
		Category:        CategoryAnalysis,
		DurationSeconds: 30,
		AssignedTeam:    "business_automation",
		Priority:        5,
	}
}

func TestAddNodeValidation(t *testing.T) {
	tests := []struct {
		name     string
		node     *TaskNode
		wantCode types.ErrorCode
	}{
		{
			name:     "nil node",
			node:     nil,
			wantCode: types.VALIDATION_FAILED,
		},
		{
			name: "missing id",
			node: &TaskNode{
				Name:            "Implementation",
				DurationSeconds: 60,
				Priority:        3,
			},
			wantCode: types.VALIDATION_FAILED,
		},
		{
			name: "zero duration",
			node: &TaskNode{
				ID:       types.NewID(),
				Name:     "Implementation",
				Priority: 3,
			},
			wantCode: types.INVALID_TASK_DURATION,
		},
		{
			name: "negative duration",
			node: &TaskNode{
				ID:              types.NewID(),
				Name:            "Implementation",
				DurationSeconds: -10,
				Priority:        3,
			},
			wantCode: types.INVALID_TASK_DURATION,
		},
		{
			name: "priority out of range",
			node: &TaskNode{
				ID:              types.NewID(),
				Name:            "Implementation",
				DurationSeconds: 60,
				Priority:        11,
			},
			wantCode: types.VALIDATION_FAILED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			err := g.AddNode(tt.node)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.CodeOf(err))
			assert.Equal(t, 0, g.Len())
		})
	}
}

func TestAddNodeDuplicate(t *testing.T) {
	g := New()
	node := testNode("Process Analysis")
	require.NoError(t, g.AddNode(node))

	dup := *node
	err := g.AddNode(&dup)
	require.Error(t, err)
	assert.Equal(t, types.VALIDATION_FAILED, types.CodeOf(err))
	assert.Equal(t, 1, g.Len())
}

func TestAddEdgeUnknownEndpoints(t *testing.T) {
	g := New()
	node := testNode("Implementation")
	require.NoError(t, g.AddNode(node))

	err := g.AddEdge("missing", node.ID.String())
	assert.Equal(t, types.MISSING_DEPENDENCY, types.CodeOf(err))

	err = g.AddEdge(node.ID.String(), "missing")
	assert.Equal(t, types.MISSING_DEPENDENCY, types.CodeOf(err))
}

func TestAddEdgeRejectsSelfDependency(t *testing.T) {
	g := New()
	node := testNode("Implementation")
	require.NoError(t, g.AddNode(node))

	err := g.AddEdge(node.ID.String(), node.ID.String())
	assert.Equal(t, types.DEPENDENCY_CYCLE, types.CodeOf(err))
}

func TestAddEdgeRejectsCycleBeforeInsertion(t *testing.T) {
	g := New()
	a, b, c := testNode("A"), testNode("B"), testNode("C")
	for _, n := range []*TaskNode{a, b, c} {
		require.NoError(t, g.AddNode(n))
	}

	require.NoError(t, g.AddEdge(a.ID.String(), b.ID.String()))
	require.NoError(t, g.AddEdge(b.ID.String(), c.ID.String()))

	// Closing the triangle would create a cycle and must leave the graph
	// untouched.
	err := g.AddEdge(c.ID.String(), a.ID.String())
	require.Error(t, err)
	assert.Equal(t, types.DEPENDENCY_CYCLE, types.CodeOf(err))
	assert.Equal(t, 2, g.EdgeCount())
	assert.Empty(t, g.Node(a.ID.String()).Dependencies)
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := New()
	a, b := testNode("A"), testNode("B")
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddNode(b))

	require.NoError(t, g.AddEdge(a.ID.String(), b.ID.String()))
	require.NoError(t, g.AddEdge(a.ID.String(), b.ID.String()))

	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.Node(b.ID.String()).Dependencies, 1)
}

func TestSourcesAndSinks(t *testing.T) {
	g := New()
	nodes := make([]*TaskNode, 4)
	for i := range nodes {
		nodes[i] = testNode(fmt.Sprintf("task-%d", i))
		require.NoError(t, g.AddNode(nodes[i]))
	}

	// Diamond: 0 -> 1, 0 -> 2, 1 -> 3, 2 -> 3
	require.NoError(t, g.AddEdge(nodes[0].ID.String(), nodes[1].ID.String()))
	require.NoError(t, g.AddEdge(nodes[0].ID.String(), nodes[2].ID.String()))
	require.NoError(t, g.AddEdge(nodes[1].ID.String(), nodes[3].ID.String()))
	require.NoError(t, g.AddEdge(nodes[2].ID.String(), nodes[3].ID.String()))

	assert.Equal(t, []string{nodes[0].ID.String()}, g.Sources())
	assert.Equal(t, []string{nodes[3].ID.String()}, g.Sinks())
	assert.ElementsMatch(t,
		[]string{nodes[1].ID.String(), nodes[2].ID.String()},
		g.Predecessors(nodes[3].ID.String()))
}

func TestNodesPreserveInsertionOrder(t *testing.T) {
	g := New()
	var want []string
	for i := 0; i < 8; i++ {
		n := testNode(fmt.Sprintf("task-%d", i))
		require.NoError(t, g.AddNode(n))
		want = append(want, n.ID.String())
	}
	assert.Equal(t, want, g.NodeIDs())
}
