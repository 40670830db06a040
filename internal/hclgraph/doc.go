// Package hclgraph loads graph definitions written in HCL and applies them
// to an engine.
//
// A definition file declares node instances by name, their initial widget
// values, the links between their slots and optionally the engine's tick
// rate:
//
//	engine {
//	  rate = 2
//	}
//
//	node "first" {
//	  kind     = "Add"
//	  position = [100, 120]
//	  inputs = {
//	    a = 2
//	    b = 3
//	  }
//	}
//
//	link {
//	  from = "first.result"
//	  to   = "second.a"
//	}
//
// Names only exist in the file. Applying a definition creates fresh nodes,
// maps the names to the allocated ids and resolves every link through the
// engine's attribute registry.
package hclgraph
