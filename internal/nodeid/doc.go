/*
Package nodeid provides the identity types shared by every part of the
engine: node ids, attribute ids, slot directions and the logical slot
references used by graph definition files.

NodeID and AttrID are opaque integers handed out by an Allocator. Zero is
never issued, so a zero value always means "no identity". Identities are
never reused within a process, which keeps stale links from silently
resolving to a newer node.

A SlotRef is the human readable form of an endpoint, written as
`node.key`, e.g. `first.result`.
*/
package nodeid
