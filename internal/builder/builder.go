package builder

import (
	"context"

	"github.com/specialistvlad/nodegrid/internal/attrstore"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/graph"
	"github.com/specialistvlad/nodegrid/internal/links"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// Reason explains why a link was discarded.
type Reason string

const (
	ReasonUnresolvedSource Reason = "unresolved-source"
	ReasonUnresolvedTarget Reason = "unresolved-target"
	ReasonSourceNotOutput  Reason = "source-not-output"
	ReasonTargetNotInput   Reason = "target-not-input"
	ReasonDuplicateTarget  Reason = "duplicate-target"
)

// Discard records a link that did not make it into the graph.
type Discard struct {
	Link   links.Link `json:"link"`
	Reason Reason     `json:"reason"`
}

// Report summarizes a rebuild.
type Report struct {
	Accepted  int       `json:"accepted"`
	Discarded []Discard `json:"discarded"`
}

// Build derives a fresh dependency graph from set.
func Build(ctx context.Context, set links.Set, attrs attrstore.Store) (*graph.Graph, Report) {
	logger := ctxlog.FromContext(ctx)
	table := attrs.Snapshot(ctx)
	g := graph.New()
	var report Report

	discard := func(l links.Link, reason Reason) {
		logger.Warn("Link discarded.", "source", l.Source, "target", l.Target, "reason", reason)
		report.Discarded = append(report.Discarded, Discard{Link: l, Reason: reason})
	}

	for _, l := range set.All() {
		src, ok := table[l.Source]
		if !ok {
			discard(l, ReasonUnresolvedSource)
			continue
		}
		tgt, ok := table[l.Target]
		if !ok {
			discard(l, ReasonUnresolvedTarget)
			continue
		}
		if src.Direction != nodeid.Output {
			discard(l, ReasonSourceNotOutput)
			continue
		}
		if tgt.Direction != nodeid.Input {
			discard(l, ReasonTargetNotInput)
			continue
		}
		if g.HasSource(l.Target) {
			discard(l, ReasonDuplicateTarget)
			continue
		}

		g.AddEdge(src.Node, tgt.Node)
		g.SetSource(l.Target, graph.Source{
			Node:       src.Node,
			OutputKey:  src.Key,
			TargetNode: tgt.Node,
			InputKey:   tgt.Key,
		})
		report.Accepted++
	}

	logger.Debug("Dependency graph rebuilt.",
		"links", set.Len(), "accepted", report.Accepted, "discarded", len(report.Discarded), "edges", g.EdgeCount())
	return g, report
}
