package engine

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/builder"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/graph"
	"github.com/specialistvlad/nodegrid/internal/links"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// LogicalLink names both endpoints by node and key instead of attribute id.
type LogicalLink struct {
	SourceNode nodeid.NodeID `json:"source_node"`
	SourceKey  string        `json:"source_key"`
	TargetNode nodeid.NodeID `json:"target_node"`
	TargetKey  string        `json:"target_key"`
}

// UpdateLinks replaces the whole link set and rebuilds the graph.
func (e *Engine) UpdateLinks(ctx context.Context, ls []links.Link) builder.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildLocked(ctx, links.NewSet(ls))
}

// rebuildLocked derives a new graph for set and publishes both at once.
// e.mu must be held.
func (e *Engine) rebuildLocked(ctx context.Context, set links.Set) builder.Report {
	g, report := builder.Build(ctx, set, e.attrs)
	old := e.snap.Swap(&snapshot{links: set, graph: g, report: report})
	released := e.releaseInputs(ctx, old.graph, g)
	ctxlog.FromContext(ctx).Debug("Link set published.", "links", set.Len(), "edges", g.EdgeCount(), "inputsReleased", released)
	return report
}

// releaseInputs clears the linked value of every input that was fed by a
// link in prev and is no longer fed by the same source in next. Those
// inputs fall back to their widgets.
func (e *Engine) releaseInputs(ctx context.Context, prev, next *graph.Graph) int {
	if prev == nil {
		return 0
	}
	released := 0
	for _, b := range prev.Sources() {
		if src, ok := next.Source(b.Target); ok && src == b.Source {
			continue
		}
		n, ok := e.nodes.Get(ctx, b.Source.TargetNode)
		if !ok {
			continue
		}
		n.State().ClearLinkedValue(b.Source.InputKey)
		released++
	}
	return released
}

// Links returns the current link set.
func (e *Engine) Links() []links.Link {
	return e.snap.Load().links.All()
}

// Graph returns the current dependency graph. It must not be mutated.
func (e *Engine) Graph() *graph.Graph {
	return e.snap.Load().graph
}

// LastBuild returns the report of the most recent rebuild.
func (e *Engine) LastBuild() builder.Report {
	return e.snap.Load().report
}

// ResolveLink turns a logical link into attribute ids.
func (e *Engine) ResolveLink(ctx context.Context, l LogicalLink) (links.Link, error) {
	src, ok := e.attrs.Lookup(ctx, l.SourceNode, nodeid.Output, l.SourceKey)
	if !ok {
		return links.Link{}, fmt.Errorf("output %q of node %s: %w", l.SourceKey, l.SourceNode, ErrSlotNotFound)
	}
	tgt, ok := e.attrs.Lookup(ctx, l.TargetNode, nodeid.Input, l.TargetKey)
	if !ok {
		return links.Link{}, fmt.Errorf("input %q of node %s: %w", l.TargetKey, l.TargetNode, ErrSlotNotFound)
	}
	return links.Link{Source: src, Target: tgt}, nil
}

// LogicalLinks returns the current link set in logical form. Links whose
// endpoints no longer resolve are left out.
func (e *Engine) LogicalLinks(ctx context.Context) []LogicalLink {
	var out []LogicalLink
	for _, l := range e.Links() {
		src, ok := e.attrs.Resolve(ctx, l.Source)
		if !ok {
			continue
		}
		tgt, ok := e.attrs.Resolve(ctx, l.Target)
		if !ok {
			continue
		}
		out = append(out, LogicalLink{SourceNode: src.Node, SourceKey: src.Key, TargetNode: tgt.Node, TargetKey: tgt.Key})
	}
	return out
}
