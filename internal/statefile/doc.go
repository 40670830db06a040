// Package statefile saves and restores the engine's graph.
//
// A Document records every node with its kind, label, position and slot
// values, plus the link set in logical form (node id and slot key on both
// ends). Attribute ids are never persisted: they are re-derived when the
// nodes are re-created, so a restored graph is wired by name rather than
// by number.
package statefile
