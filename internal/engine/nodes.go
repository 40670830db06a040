package engine

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/builder"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// CreateNode instantiates a node of the given kind, creates its slots and
// registers it.
func (e *Engine) CreateNode(ctx context.Context, kind, label string, pos node.Position) (*node.State, error) {
	n, err := e.kinds.New(kind)
	if err != nil {
		return nil, err
	}

	id := e.alloc.NextNode()
	st, err := node.Instantiate(ctx, n, id, kind, &e.alloc, e.attrs)
	if err != nil {
		return nil, err
	}
	if label != "" {
		st.SetLabel(label)
	}
	st.SetPosition(pos)

	if err := e.RegisterNode(ctx, n, id); err != nil {
		e.attrs.Purge(ctx, id)
		return nil, err
	}
	return st, nil
}

// RegisterNode adds an instantiated node to the node registry under id.
func (e *Engine) RegisterNode(ctx context.Context, n node.Node, id nodeid.NodeID) error {
	st := n.State()
	if st == nil {
		return fmt.Errorf("node %s has no state; instantiate it first", id)
	}
	if st.ID() != id {
		return fmt.Errorf("node was instantiated as %s, cannot register as %s", st.ID(), id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.nodes.Add(ctx, id, n); err != nil {
		return err
	}
	e.alloc.ReserveNode(id)

	ctxlog.FromContext(ctx).Info("Node registered.", "nodeID", id, "kind", st.Kind(), "label", st.Label())
	return nil
}

// UnregisterNode removes a node, purges its attributes, drops every link
// touching them, cancels its background work and rebuilds the graph.
func (e *Engine) UnregisterNode(ctx context.Context, id nodeid.NodeID) (builder.Report, error) {
	logger := ctxlog.FromContext(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes.Remove(ctx, id)
	if !ok {
		return builder.Report{}, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	purged := e.attrs.Purge(ctx, id)
	e.pool.Cancel(id)

	cur := e.snap.Load()
	kept := cur.links.Without(purged)
	report := e.rebuildLocked(ctx, kept)

	if err := closeNode(n); err != nil {
		logger.Warn("Node close failed.", "nodeID", id, "error", err)
	}
	logger.Info("Node unregistered.", "nodeID", id, "attributes", len(purged), "linksDropped", cur.links.Len()-kept.Len())
	return report, nil
}

// Node returns the live instance for id.
func (e *Engine) Node(ctx context.Context, id nodeid.NodeID) (node.Node, bool) {
	return e.nodes.Get(ctx, id)
}

// NodeIDs returns the registered node ids in ascending order.
func (e *Engine) NodeIDs(ctx context.Context) []nodeid.NodeID {
	return e.nodes.IDs(ctx)
}

// Snapshots exports every registered node in id order.
func (e *Engine) Snapshots(ctx context.Context) []node.Snapshot {
	ids := e.nodes.IDs(ctx)
	out := make([]node.Snapshot, 0, len(ids))
	for _, id := range ids {
		if n, ok := e.nodes.Get(ctx, id); ok {
			out = append(out, n.State().Export())
		}
	}
	return out
}

// SetWidget is the UI write path for an input widget.
func (e *Engine) SetWidget(ctx context.Context, id nodeid.NodeID, key string, v cty.Value) error {
	n, ok := e.nodes.Get(ctx, id)
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	return n.State().SetWidgetValue(key, v)
}

func closeNode(n node.Node) error {
	if c, ok := n.(node.Closer); ok {
		return c.Close()
	}
	return nil
}
