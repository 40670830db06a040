// Package attrstore defines the interface for the attribute registry: the
// table that maps every input and output slot id to its owning node, its
// direction and its key.
//
// # Why Attribute Store Exists
//
// Links on the canvas connect raw slot ids, not nodes. Before the engine can
// derive node-level dependencies it has to answer two questions for every
// link endpoint: who owns this slot, and which way does data flow through
// it? The attribute store is the single source of truth for that answer.
//
// # Lifecycle and Usage
//
//   1. **Register** is called once per slot when a node instance is created.
//   2. **Resolve** is called by the graph builder for both endpoints of every link.
//   3. **Lookup** maps a logical (node, direction, key) back to a slot id, which
//      lets saved documents and graph files express links without raw ids.
//   4. **Purge** removes every slot of a node when it is deleted.
//
// An attribute id stays resolvable exactly as long as its node is registered.
// Ids are never reused, so a stale link to a purged slot resolves to nothing
// and is discarded by the builder instead of wiring a different node.
//
// # Concurrency
//
// Implementations must be safe for concurrent use. The UI side registers and
// purges while the execution loop's rebuilds take snapshots.
package attrstore

import (
	"context"
	"errors"

	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// ErrConflict is returned when an attribute id is registered again with a
// different owner. The original entry is kept.
var ErrConflict = errors.New("attribute already registered to a different owner")

// Entry describes a single slot.
type Entry struct {
	Node      nodeid.NodeID
	Direction nodeid.Direction
	Key       string
}

// Store is the attribute registry.
type Store interface {
	// Register records the owner of an attribute id. Registering the same
	// id with an identical entry is a no-op.
	Register(ctx context.Context, id nodeid.AttrID, entry Entry) error

	// Resolve returns the entry for an attribute id.
	Resolve(ctx context.Context, id nodeid.AttrID) (Entry, bool)

	// Lookup returns the attribute id for a logical slot.
	Lookup(ctx context.Context, node nodeid.NodeID, dir nodeid.Direction, key string) (nodeid.AttrID, bool)

	// Purge removes every entry owned by node and returns the removed ids
	// in ascending order.
	Purge(ctx context.Context, node nodeid.NodeID) []nodeid.AttrID

	// Snapshot returns a copy of the whole registry.
	Snapshot(ctx context.Context) map[nodeid.AttrID]Entry

	// Len returns the number of registered attributes.
	Len() int
}
