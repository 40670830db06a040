package nodeid

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// NodeID identifies a node instance.
type NodeID uint64

// String implements fmt.Stringer.
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// AttrID identifies a single input or output slot.
type AttrID uint64

// String implements fmt.Stringer.
func (id AttrID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Direction tells whether a slot receives or produces values.
type Direction int

const (
	Input Direction = iota + 1
	Output
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseNodeID parses the decimal form produced by NodeID.String.
func ParseNodeID(s string) (NodeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	return NodeID(v), nil
}

// Allocator issues node and attribute identities. It is safe for
// concurrent use.
type Allocator struct {
	nodes atomic.Uint64
	attrs atomic.Uint64
}

// NextNode returns a fresh node id.
func (a *Allocator) NextNode() NodeID {
	return NodeID(a.nodes.Add(1))
}

// NextAttr returns a fresh attribute id.
func (a *Allocator) NextAttr() AttrID {
	return AttrID(a.attrs.Add(1))
}

// ReserveNode makes sure id will never be issued by NextNode. It is used
// when a caller supplies its own node id.
func (a *Allocator) ReserveNode(id NodeID) {
	for {
		cur := a.nodes.Load()
		if uint64(id) <= cur || a.nodes.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}
