// Package graph holds the node-level dependency graph derived from the
// link set, and the deterministic topological sort the execution loop runs
// every tick.
//
// # Shape
//
// A Graph has two parts:
//
//   - **Adjacency:** source node -> set of dependent nodes. Duplicate links
//     between the same pair of nodes collapse to one edge.
//   - **Source map:** target input attribute -> (source node, output key,
//     target node, input key). Propagation walks this map.
//
// # Immutability
//
// The builder populates a Graph and then publishes it. After publication it
// is never mutated: a rebuild produces a brand new Graph, so the execution
// loop can keep reading the snapshot it took at the start of a tick.
//
// # Ordering
//
// TopologicalSort uses Kahn's algorithm with a min-heap ready queue, so among
// nodes that are ready at the same time the lowest id always runs first.
// The same graph and node set therefore always produce the same order.
package graph
