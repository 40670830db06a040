package node

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/attrstore"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// Node is the contract implemented by every node kind.
type Node interface {
	// CreateInputs declares the node's input slots.
	CreateInputs(d *Declarer)
	// CreateOutputs declares the node's output slots.
	CreateOutputs(d *Declarer)
	// Process reads the current inputs and writes outputs. It must not
	// block on external resources; slow work goes to a background task.
	Process(ctx context.Context) error
	// State returns the instance state attached by Instantiate.
	State() *State
	// Attach binds the instance state. It is called exactly once.
	Attach(s *State)
}

// Closer is implemented by nodes that hold resources which must be
// released when the node is deleted.
type Closer interface {
	Close() error
}

// Instantiate runs slot creation for a fresh node instance. Every declared
// slot gets a new attribute id registered in attrs. On failure all slots
// registered so far are purged again.
func Instantiate(ctx context.Context, n Node, id nodeid.NodeID, kind string, alloc *nodeid.Allocator, attrs attrstore.Store) (*State, error) {
	st := newState(id, kind)
	d := &Declarer{ctx: ctx, state: st, alloc: alloc, attrs: attrs}

	n.CreateInputs(d)
	n.CreateOutputs(d)
	if d.err != nil {
		attrs.Purge(ctx, id)
		return nil, fmt.Errorf("failed to create slots for node %s (%s): %w", id, kind, d.err)
	}

	n.Attach(st)
	return st, nil
}
