// Package registry is the catalog of node kinds compiled into the binary.
//
// Each module package exposes a Module whose Register method adds its kinds
// to a Registry. The registry is the factory used to create node instances
// and the source of the palette shown to the user, grouped by category.
package registry
