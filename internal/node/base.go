package node

import (
	"maps"
	"slices"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Base is embedded by node kinds. It stores the attached State and exposes
// the value accessors node code uses inside Process.
type Base struct {
	state *State

	seenMu sync.Mutex
	seen   map[string]cty.Value
}

// Attach implements Node.
func (b *Base) Attach(s *State) {
	b.state = s
}

// State implements Node.
func (b *Base) State() *State {
	return b.state
}

// InputValue returns the effective value of an input slot.
func (b *Base) InputValue(key string) cty.Value {
	return b.state.InputValue(key)
}

// SetOutputValue writes an output slot.
func (b *Base) SetOutputValue(key string, v cty.Value) error {
	return b.state.SetOutputValue(key, v)
}

// PublishOutput writes a background task's result to an output.
func (b *Base) PublishOutput(key string, v cty.Value) error {
	return b.state.PublishOutput(key, v)
}

// SetInputValueFromLink writes an input slot's internal value.
func (b *Base) SetInputValueFromLink(key string, v cty.Value) error {
	return b.state.SetInputValueFromLink(key, v)
}

// InputsChanged reports whether any of the given inputs differs from the
// values seen by the previous call. The first call always reports true.
func (b *Base) InputsChanged(keys ...string) bool {
	b.seenMu.Lock()
	defer b.seenMu.Unlock()

	current := make(map[string]cty.Value, len(keys))
	for _, k := range keys {
		current[k] = b.state.InputValue(k)
	}

	if b.seen != nil && slices.Equal(slices.Sorted(maps.Keys(b.seen)), slices.Sorted(maps.Keys(current))) {
		changed := false
		for k, v := range current {
			if !sameValue(b.seen[k], v) {
				changed = true
				break
			}
		}
		if !changed {
			return false
		}
	}
	b.seen = current
	return true
}

// ForgetInputs clears the memory used by InputsChanged, forcing the next
// call to report a change.
func (b *Base) ForgetInputs() {
	b.seenMu.Lock()
	defer b.seenMu.Unlock()
	b.seen = nil
}

func sortedKeys(m map[string]cty.Value) []string {
	return slices.Sorted(maps.Keys(m))
}
