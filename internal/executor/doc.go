// Package executor performs the work of a single tick once an order has
// been computed: it propagates output values along the source map and then
// runs every node's Process in order.
//
// Each node is a fault boundary. An error or a panic from Process is
// recorded, the node's outputs are put back to what they were before the
// call, and the remaining nodes still run.
package executor
