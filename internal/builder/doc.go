/*
Package builder derives the node-level dependency graph from the current
link set. It acts as the bridge between the raw, slot-level links the UI
hands over and the graph the execution loop sorts and walks.

Every rebuild is a full replacement. For each link, in the order supplied:

 1. Resolution: both endpoints are looked up in the attribute registry. A
    link whose source or target no longer resolves (typically because its
    node was deleted) is discarded.

 2. Direction check: the source must be an output slot and the target an
    input slot. Anything else is discarded.

 3. Ownership: an input accepts a single link. The first accepted link into
    a target wins and later ones are discarded.

 4. Recording: an edge source_node -> target_node is added (edges form a set)
    and the source map entry for the target attribute is written.

Discarded links never fail the build. They are logged and returned in the
Report so callers can surface them.
*/
package builder
