package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// partRegex matches a single node name or slot key.
var partRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SlotRef is a logical reference to a node's slot, e.g. `first.result`.
type SlotRef struct {
	Node string
	Key  string
}

// String returns the canonical `node.key` form.
func (r SlotRef) String() string {
	return r.Node + "." + r.Key
}

// isValidName checks for undesirable but technically valid names.
func isValidName(name string) bool {
	return name != "-" && name != "_"
}

// ParseSlotRef parses the canonical string form of a slot reference.
func ParseSlotRef(raw string) (SlotRef, error) {
	if raw == "" {
		return SlotRef{}, fmt.Errorf("slot reference cannot be empty")
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 2 {
		return SlotRef{}, fmt.Errorf("slot reference %q must have the form node.key", raw)
	}

	for _, p := range parts {
		if p == "" {
			return SlotRef{}, fmt.Errorf("slot reference %q contains empty segment", raw)
		}
		if !partRegex.MatchString(p) {
			return SlotRef{}, fmt.Errorf("invalid segment format: %q", p)
		}
		if !isValidName(p) {
			return SlotRef{}, fmt.Errorf("invalid segment name: %q", p)
		}
	}

	return SlotRef{Node: parts[0], Key: parts[1]}, nil
}
