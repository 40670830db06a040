// Package links holds the user-drawn connections between slots.
//
// The UI never patches links one by one. It always hands over the complete
// current list, which replaces the previous Set wholesale and triggers a
// rebuild of the dependency graph.
package links

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// Link connects an output slot (Source) to an input slot (Target).
type Link struct {
	Source nodeid.AttrID `json:"source"`
	Target nodeid.AttrID `json:"target"`
}

// String implements fmt.Stringer.
func (l Link) String() string {
	return fmt.Sprintf("%s->%s", l.Source, l.Target)
}

// Set is an immutable, ordered list of links.
type Set struct {
	links []Link
}

// NewSet copies ls into a new Set, keeping the supplied order.
func NewSet(ls []Link) Set {
	return Set{links: slices.Clone(ls)}
}

// All returns a copy of the links in their supplied order.
func (s Set) All() []Link {
	return slices.Clone(s.links)
}

// Len returns the number of links.
func (s Set) Len() int {
	return len(s.links)
}

// Without returns a new Set without any link that touches one of attrs.
func (s Set) Without(attrs []nodeid.AttrID) Set {
	drop := make(map[nodeid.AttrID]struct{}, len(attrs))
	for _, a := range attrs {
		drop[a] = struct{}{}
	}

	kept := make([]Link, 0, len(s.links))
	for _, l := range s.links {
		_, src := drop[l.Source]
		_, tgt := drop[l.Target]
		if !src && !tgt {
			kept = append(kept, l)
		}
	}
	return Set{links: kept}
}
