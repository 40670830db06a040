package graph

import (
	"cmp"
	"maps"
	"slices"

	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// Source describes where a linked input gets its value from.
type Source struct {
	Node       nodeid.NodeID
	OutputKey  string
	TargetNode nodeid.NodeID
	InputKey   string
}

// Binding is one entry of the source map.
type Binding struct {
	Target nodeid.AttrID
	Source Source
}

// Edge is a dependency edge: To depends on From.
type Edge struct {
	From nodeid.NodeID
	To   nodeid.NodeID
}

// Graph is the node-level dependency graph.
type Graph struct {
	adj     map[nodeid.NodeID]map[nodeid.NodeID]struct{}
	sources map[nodeid.AttrID]Source
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		adj:     make(map[nodeid.NodeID]map[nodeid.NodeID]struct{}),
		sources: make(map[nodeid.AttrID]Source),
	}
}

// AddEdge records that to depends on from. Adding the same edge twice has
// no effect. Self edges are kept; they make the graph cyclic.
func (g *Graph) AddEdge(from, to nodeid.NodeID) {
	deps, ok := g.adj[from]
	if !ok {
		deps = make(map[nodeid.NodeID]struct{})
		g.adj[from] = deps
	}
	deps[to] = struct{}{}
}

// SetSource records the source of a target input attribute.
func (g *Graph) SetSource(target nodeid.AttrID, src Source) {
	g.sources[target] = src
}

// HasSource reports whether target already has a source.
func (g *Graph) HasSource(target nodeid.AttrID) bool {
	_, ok := g.sources[target]
	return ok
}

// Source returns the source of a target input attribute.
func (g *Graph) Source(target nodeid.AttrID) (Source, bool) {
	s, ok := g.sources[target]
	return s, ok
}

// Dependents returns the nodes that depend on id, in ascending order.
func (g *Graph) Dependents(id nodeid.NodeID) []nodeid.NodeID {
	return slices.Sorted(maps.Keys(g.adj[id]))
}

// Edges returns every edge sorted by (From, To).
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for from, deps := range g.adj {
		for to := range deps {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return edges
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, deps := range g.adj {
		n += len(deps)
	}
	return n
}

// Sources returns the source map ordered by target attribute id.
func (g *Graph) Sources() []Binding {
	out := make([]Binding, 0, len(g.sources))
	for _, target := range slices.Sorted(maps.Keys(g.sources)) {
		out = append(out, Binding{Target: target, Source: g.sources[target]})
	}
	return out
}

// Adjacency returns a copy of the adjacency sets.
func (g *Graph) Adjacency() map[nodeid.NodeID]map[nodeid.NodeID]struct{} {
	out := make(map[nodeid.NodeID]map[nodeid.NodeID]struct{}, len(g.adj))
	for k, v := range g.adj {
		out[k] = maps.Clone(v)
	}
	return out
}

// SourceMap returns a copy of the source map.
func (g *Graph) SourceMap() map[nodeid.AttrID]Source {
	return maps.Clone(g.sources)
}

// Equal reports whether g and other have the same edges and source map.
func (g *Graph) Equal(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	return slices.Equal(g.Edges(), other.Edges()) && maps.Equal(g.sources, other.sources)
}
