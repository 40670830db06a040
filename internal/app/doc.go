// Package app contains the core application logic. It defines the main App
// struct and the run lifecycle of a node graph: load a definition or a saved
// state, tick it, serve the control API and save on exit. It is decoupled
// from any specific entrypoint like a CLI.
package app
