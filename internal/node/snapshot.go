package node

import (
	"errors"
	"fmt"
	"maps"

	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Snapshot is the exported form of a node instance, used for persistence
// and the control API.
type Snapshot struct {
	ID       nodeid.NodeID
	Kind     string
	Label    string
	Position Position
	Widgets  map[string]cty.Value
	Inputs   map[string]cty.Value
	Outputs  map[string]cty.Value
}

// Export copies the instance state into a Snapshot.
func (s *State) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:       s.id,
		Kind:     s.kind,
		Label:    s.label,
		Position: s.position,
		Widgets:  maps.Clone(s.widgets),
		Inputs:   maps.Clone(s.inputs),
		Outputs:  maps.Clone(s.outputs),
	}
}

// Import loads label, position and values from a Snapshot. Values for
// undeclared keys or of an incompatible type are skipped and reported in
// the returned error; everything else is still applied.
func (s *State) Import(snap Snapshot) error {
	var errs []error
	if snap.Label != "" {
		s.SetLabel(snap.Label)
	}
	s.SetPosition(snap.Position)

	for _, key := range sortedKeys(snap.Widgets) {
		if err := s.SetWidgetValue(key, snap.Widgets[key]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, key := range sortedKeys(snap.Inputs) {
		if IsAbsent(snap.Inputs[key]) {
			continue
		}
		if err := s.SetInputValueFromLink(key, snap.Inputs[key]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, key := range sortedKeys(snap.Outputs) {
		if err := s.SetOutputValue(key, snap.Outputs[key]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("importing node %s: %w", s.id, errors.Join(errs...))
	}
	return nil
}
