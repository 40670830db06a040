package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(edges ...Edge) *Graph {
	g := New()
	for _, e := range edges {
		g.AddEdge(e.From, e.To)
	}
	return g
}

func TestGraph_EdgesAreASet(t *testing.T) {
	g := buildGraph(Edge{1, 2}, Edge{1, 2}, Edge{1, 3})

	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, []nodeid.NodeID{2, 3}, g.Dependents(1))
	assert.Empty(t, g.Dependents(2))

	want := map[nodeid.NodeID]map[nodeid.NodeID]struct{}{
		1: {2: {}, 3: {}},
	}
	if diff := cmp.Diff(want, g.Adjacency()); diff != "" {
		t.Errorf("adjacency mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_Sources(t *testing.T) {
	g := New()
	g.SetSource(9, Source{Node: 1, OutputKey: "result", TargetNode: 2, InputKey: "b"})
	g.SetSource(4, Source{Node: 1, OutputKey: "result", TargetNode: 2, InputKey: "a"})

	assert.True(t, g.HasSource(4))
	assert.False(t, g.HasSource(5))

	got := g.Sources()
	require.Len(t, got, 2)
	assert.Equal(t, nodeid.AttrID(4), got[0].Target, "sources are ordered by target attribute")
	assert.Equal(t, "a", got[0].Source.InputKey)
}

func TestGraph_Equal(t *testing.T) {
	a := buildGraph(Edge{1, 2})
	b := buildGraph(Edge{1, 2})
	a.SetSource(3, Source{Node: 1, OutputKey: "x", TargetNode: 2, InputKey: "y"})
	b.SetSource(3, Source{Node: 1, OutputKey: "x", TargetNode: 2, InputKey: "y"})
	assert.True(t, a.Equal(b))

	b.AddEdge(2, 3)
	assert.False(t, a.Equal(b))
}

func TestTopologicalSort(t *testing.T) {
	testCases := []struct {
		name     string
		nodes    []nodeid.NodeID
		edges    []Edge
		expected []nodeid.NodeID
	}{
		{
			name:     "no edges sorts by id",
			nodes:    []nodeid.NodeID{3, 1, 2},
			expected: []nodeid.NodeID{1, 2, 3},
		},
		{
			name:     "chain against id order",
			nodes:    []nodeid.NodeID{1, 2, 3},
			edges:    []Edge{{3, 2}, {2, 1}},
			expected: []nodeid.NodeID{3, 2, 1},
		},
		{
			name:     "diamond with tie-break",
			nodes:    []nodeid.NodeID{1, 2, 3, 4},
			edges:    []Edge{{4, 3}, {4, 2}, {3, 1}, {2, 1}},
			expected: []nodeid.NodeID{4, 2, 3, 1},
		},
		{
			name:     "lower id released later still waits its turn",
			nodes:    []nodeid.NodeID{1, 5, 9},
			edges:    []Edge{{9, 1}},
			expected: []nodeid.NodeID{5, 9, 1},
		},
		{
			name:     "edges to unknown nodes are ignored",
			nodes:    []nodeid.NodeID{1, 2},
			edges:    []Edge{{7, 1}, {2, 8}, {2, 1}},
			expected: []nodeid.NodeID{2, 1},
		},
		{
			name:     "isolated sink is included",
			nodes:    []nodeid.NodeID{1, 2, 3},
			edges:    []Edge{{1, 2}},
			expected: []nodeid.NodeID{1, 2, 3},
		},
		{
			name:     "empty",
			expected: []nodeid.NodeID{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order, err := TopologicalSort(tc.nodes, buildGraph(tc.edges...))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, order)
		})
	}
}

func TestTopologicalSort_RespectsEveryEdge(t *testing.T) {
	nodes := []nodeid.NodeID{1, 2, 3, 4, 5, 6}
	edges := []Edge{{6, 1}, {5, 2}, {2, 1}, {4, 3}, {3, 2}, {6, 4}}
	g := buildGraph(edges...)

	order, err := TopologicalSort(nodes, g)
	require.NoError(t, err)
	require.Len(t, order, len(nodes))

	pos := make(map[nodeid.NodeID]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range edges {
		assert.Less(t, pos[e.From], pos[e.To], "edge %d->%d violated", e.From, e.To)
	}

	again, err := TopologicalSort(nodes, g)
	require.NoError(t, err)
	assert.Equal(t, order, again, "sort must be deterministic")
}

func TestTopologicalSort_Cycle(t *testing.T) {
	testCases := []struct {
		name      string
		nodes     []nodeid.NodeID
		edges     []Edge
		remaining []nodeid.NodeID
	}{
		{
			name:      "two node cycle",
			nodes:     []nodeid.NodeID{1, 2, 3},
			edges:     []Edge{{1, 2}, {2, 1}, {2, 3}},
			remaining: []nodeid.NodeID{1, 2, 3},
		},
		{
			name:      "self edge",
			nodes:     []nodeid.NodeID{1, 2},
			edges:     []Edge{{2, 2}},
			remaining: []nodeid.NodeID{2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order, err := TopologicalSort(tc.nodes, buildGraph(tc.edges...))
			require.ErrorIs(t, err, ErrCycle)
			assert.Nil(t, order)

			var cycleErr *CycleError
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, tc.remaining, cycleErr.Remaining)
		})
	}
}
