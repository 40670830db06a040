// Package node defines the contract every node kind implements and the
// per-instance state the engine reads and writes on its behalf.
//
// A node instance owns two independent value tables: internal input state
// and internal output state. Input slots additionally carry a widget value,
// the value the user typed on the canvas. Reads of an input prefer the
// internal value (written by link propagation) and fall back to the widget.
// Propagation never touches widgets, so a user edit is never overwritten
// by the engine.
//
// Every value is a cty.Value. A value is absent when it is the zero
// cty.Value, null or unknown. Absent values are never propagated.
package node
