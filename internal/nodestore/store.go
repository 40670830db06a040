// Package nodestore defines the interface for the node registry: the set of
// live node instances the execution loop may look up by id.
//
// # Why Node Store Exists
//
// The node store isolates **instance lookup** from the **dependency graph**.
// The graph is rebuilt wholesale whenever links change and only carries ids;
// the store is mutated in place as the user adds and deletes nodes. Keeping
// them apart means a tick can safely hold an older graph snapshot while the
// UI removes a node: the executor simply finds no instance for that id,
// skips it and reports it.
//
// # Lifecycle and Usage
//
//   - **Engine** calls Add after slot creation and Remove on deletion.
//   - **Executor** calls Get for every node in the order and every propagation endpoint.
//   - **Scheduler** (via the engine) calls IDs to enumerate the nodes to sort.
//
// # Thread Safety
//
// All implementations MUST be safe for concurrent use.
package nodestore

import (
	"context"
	"errors"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// ErrExists is returned by Add when the id is already taken.
var ErrExists = errors.New("node already registered")

// Store holds the active node instances.
type Store interface {
	// Add registers an instance under id.
	Add(ctx context.Context, id nodeid.NodeID, n node.Node) error

	// Remove unregisters id and returns the removed instance.
	Remove(ctx context.Context, id nodeid.NodeID) (node.Node, bool)

	// Get returns the instance for id.
	Get(ctx context.Context, id nodeid.NodeID) (node.Node, bool)

	// IDs returns all registered ids in ascending order.
	IDs(ctx context.Context) []nodeid.NodeID

	// Len returns the number of registered instances.
	Len() int
}
