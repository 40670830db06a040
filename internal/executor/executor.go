package executor

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/graph"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// Nodes looks up live node instances.
type Nodes interface {
	Get(ctx context.Context, id nodeid.NodeID) (node.Node, bool)
}

// Fault is a node failure observed during execution.
type Fault struct {
	Node    nodeid.NodeID `json:"node"`
	Kind    string        `json:"kind"`
	Message string        `json:"message"`
	Panic   bool          `json:"panic"`
}

// Rejection is a propagated value the target input refused.
type Rejection struct {
	Target  nodeid.AttrID `json:"target"`
	Message string        `json:"message"`
}

// Result collects what happened during one tick.
type Result struct {
	Propagated    int             `json:"propagated"`
	SkippedAbsent int             `json:"skipped_absent"`
	Rejected      []Rejection     `json:"rejected,omitempty"`
	Executed      int             `json:"executed"`
	Faults        []Fault         `json:"faults,omitempty"`
	Missing       []nodeid.NodeID `json:"missing,omitempty"`

	missing map[nodeid.NodeID]struct{}
}

func (r *Result) markMissing(id nodeid.NodeID) {
	if r.missing == nil {
		r.missing = make(map[nodeid.NodeID]struct{})
	}
	r.missing[id] = struct{}{}
	r.Missing = slices.Sorted(maps.Keys(r.missing))
}

// RunTick propagates values along g and then executes order.
func RunTick(ctx context.Context, order []nodeid.NodeID, g *graph.Graph, nodes Nodes) Result {
	var res Result
	Propagate(ctx, g, nodes, &res)
	Execute(ctx, order, nodes, &res)
	return res
}

// Propagate copies each linked source output into its target's internal
// input state. Absent source values are skipped and widgets are never
// written.
func Propagate(ctx context.Context, g *graph.Graph, nodes Nodes, res *Result) {
	logger := ctxlog.FromContext(ctx)

	for _, b := range g.Sources() {
		src, ok := nodes.Get(ctx, b.Source.Node)
		if !ok {
			logger.Warn("Propagation source missing, skipping.", "nodeID", b.Source.Node, "targetAttr", b.Target)
			res.markMissing(b.Source.Node)
			continue
		}
		dst, ok := nodes.Get(ctx, b.Source.TargetNode)
		if !ok {
			logger.Warn("Propagation target missing, skipping.", "nodeID", b.Source.TargetNode, "targetAttr", b.Target)
			res.markMissing(b.Source.TargetNode)
			continue
		}

		v := src.State().OutputValue(b.Source.OutputKey)
		if node.IsAbsent(v) {
			res.SkippedAbsent++
			continue
		}

		if err := dst.State().SetInputValueFromLink(b.Source.InputKey, v); err != nil {
			logger.Warn("Propagated value rejected.", "targetAttr", b.Target, "error", err)
			res.Rejected = append(res.Rejected, Rejection{Target: b.Target, Message: err.Error()})
			continue
		}
		res.Propagated++
	}
}

// Execute runs Process for every node in order.
func Execute(ctx context.Context, order []nodeid.NodeID, nodes Nodes, res *Result) {
	logger := ctxlog.FromContext(ctx)

	for _, id := range order {
		n, ok := nodes.Get(ctx, id)
		if !ok {
			logger.Warn("Node missing during execution, skipping.", "nodeID", id)
			res.markMissing(id)
			continue
		}

		st := n.State()
		snapshot := st.SnapshotOutputs()
		panicked, err := process(ctx, n)
		res.Executed++
		if err == nil {
			continue
		}

		st.RestoreOutputs(snapshot)
		logger.Error("Node processing failed.", "nodeID", id, "kind", st.Kind(), "panic", panicked, "error", err)
		res.Faults = append(res.Faults, Fault{Node: id, Kind: st.Kind(), Message: err.Error(), Panic: panicked})
	}
}

// process calls n.Process and turns a panic into an error.
func process(ctx context.Context, n node.Node) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return false, n.Process(ctx)
}
