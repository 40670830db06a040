// Package engine is the facade the UI, the CLI and the control API talk to.
//
// It owns the attribute registry, the node registry, the link set, the
// derived dependency graph, the background task pool and the scheduler.
// Structural edits (creating and deleting nodes, replacing links) are
// serialized by a mutex and published to the execution loop as a single
// immutable snapshot through an atomic pointer swap. A tick therefore
// always works on one consistent {links, graph} pair, even when the user
// is editing concurrently.
//
// Per-tick algorithm:
//
//  1. Topologically sort every registered node over the current graph.
//     On a cycle the tick is aborted: nothing is propagated or executed.
//  2. Propagate linked output values into internal input state.
//  3. Execute every node in order, each one isolated from the others.
//
// Every tick yields a TickReport, handed to observers registered with
// OnTick and kept as the latest status.
package engine
