package node

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// ErrUnknownSlot is returned when a value is addressed to a key the node
// never declared.
var ErrUnknownSlot = errors.New("unknown slot")

// Position is the node's location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State holds everything the engine knows about one node instance. Values
// are replaced wholesale under the lock, so readers never see a torn value.
type State struct {
	id   nodeid.NodeID
	kind string

	inputSpecs  []SlotSpec
	outputSpecs []SlotSpec
	inputIndex  map[string]int
	outputIndex map[string]int

	mu       sync.RWMutex
	label    string
	position Position
	inputs   map[string]cty.Value
	outputs  map[string]cty.Value
	widgets  map[string]cty.Value
	display  map[string]cty.Value

	// outSeq counts output writes; published holds the outSeq of the last
	// PublishOutput per key.
	outSeq    uint64
	published map[string]uint64
}

// OutputSnapshot is a copy of the output state taken before Process runs.
type OutputSnapshot struct {
	values map[string]cty.Value
	seq    uint64
}

func newState(id nodeid.NodeID, kind string) *State {
	return &State{
		id:          id,
		kind:        kind,
		label:       kind,
		inputIndex:  make(map[string]int),
		outputIndex: make(map[string]int),
		inputs:      make(map[string]cty.Value),
		outputs:     make(map[string]cty.Value),
		widgets:     make(map[string]cty.Value),
		display:     make(map[string]cty.Value),
		published:   make(map[string]uint64),
	}
}

// ID returns the node id.
func (s *State) ID() nodeid.NodeID { return s.id }

// Kind returns the node kind name.
func (s *State) Kind() string { return s.kind }

// Inputs returns the declared input slots in declaration order.
func (s *State) Inputs() []SlotSpec { return s.inputSpecs }

// Outputs returns the declared output slots in declaration order.
func (s *State) Outputs() []SlotSpec { return s.outputSpecs }

// InputSpec returns the declared input slot for key.
func (s *State) InputSpec(key string) (SlotSpec, bool) {
	i, ok := s.inputIndex[key]
	if !ok {
		return SlotSpec{}, false
	}
	return s.inputSpecs[i], true
}

// OutputSpec returns the declared output slot for key.
func (s *State) OutputSpec(key string) (SlotSpec, bool) {
	i, ok := s.outputIndex[key]
	if !ok {
		return SlotSpec{}, false
	}
	return s.outputSpecs[i], true
}

// AttrIDs returns every attribute id owned by the node.
func (s *State) AttrIDs() []nodeid.AttrID {
	ids := make([]nodeid.AttrID, 0, len(s.inputSpecs)+len(s.outputSpecs))
	for _, spec := range s.inputSpecs {
		ids = append(ids, spec.Attr)
	}
	for _, spec := range s.outputSpecs {
		ids = append(ids, spec.Attr)
	}
	return ids
}

// Label returns the display label.
func (s *State) Label() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.label
}

// SetLabel changes the display label.
func (s *State) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

// Position returns the canvas position.
func (s *State) Position() Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// SetPosition moves the node on the canvas.
func (s *State) SetPosition(p Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = p
}

// InputValue returns the effective value of an input: the internal value
// when one has been propagated, otherwise the widget value.
func (s *State) InputValue(key string) cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.inputs[key]; ok && !IsAbsent(v) {
		return v
	}
	if v, ok := s.widgets[key]; ok {
		return v
	}
	return cty.NilVal
}

// LinkedValue returns only the internal input value for key.
func (s *State) LinkedValue(key string) cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputs[key]
}

// WidgetValue returns only the widget value for key.
func (s *State) WidgetValue(key string) cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.widgets[key]
}

// OutputValue returns the internal output value for key.
func (s *State) OutputValue(key string) cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputs[key]
}

// DisplayValue returns the value mirrored to the output's display widget.
func (s *State) DisplayValue(key string) cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display[key]
}

// SetInputValueFromLink writes a propagated value into internal input
// state. The widget value is left untouched.
func (s *State) SetInputValueFromLink(key string, v cty.Value) error {
	spec, ok := s.InputSpec(key)
	if !ok {
		return fmt.Errorf("input %q of node %s: %w", key, s.id, ErrUnknownSlot)
	}
	conv, err := Coerce(v, spec.Type)
	if err != nil {
		return fmt.Errorf("input %q of node %s: %w", key, s.id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[key] = conv
	return nil
}

// ClearLinkedValue drops the propagated value for key, so InputValue falls
// back to the widget. Used when the link feeding the input goes away.
func (s *State) ClearLinkedValue(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inputs, key)
}

// SetWidgetValue is the UI write path for an input's widget. Passing an
// absent value clears the widget.
func (s *State) SetWidgetValue(key string, v cty.Value) error {
	spec, ok := s.InputSpec(key)
	if !ok {
		return fmt.Errorf("widget %q of node %s: %w", key, s.id, ErrUnknownSlot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if IsAbsent(v) {
		delete(s.widgets, key)
		return nil
	}
	conv, err := Coerce(v, spec.Type)
	if err != nil {
		return fmt.Errorf("widget %q of node %s: %w", key, s.id, err)
	}
	s.widgets[key] = conv
	return nil
}

// SetOutputValue writes internal output state and mirrors the value into
// the output's display widget.
func (s *State) SetOutputValue(key string, v cty.Value) error {
	return s.writeOutput(key, v, false)
}

// PublishOutput is SetOutputValue for results delivered by background
// tasks. A fault rollback on the execution loop does not undo it.
func (s *State) PublishOutput(key string, v cty.Value) error {
	return s.writeOutput(key, v, true)
}

func (s *State) writeOutput(key string, v cty.Value, published bool) error {
	spec, ok := s.OutputSpec(key)
	if !ok {
		return fmt.Errorf("output %q of node %s: %w", key, s.id, ErrUnknownSlot)
	}
	if !IsAbsent(v) {
		conv, err := Coerce(v, spec.Type)
		if err != nil {
			return fmt.Errorf("output %q of node %s: %w", key, s.id, err)
		}
		v = conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outSeq++
	s.outputs[key] = v
	s.display[key] = v
	if published {
		s.published[key] = s.outSeq
	}
	return nil
}

// SnapshotOutputs returns a copy of the current output state.
func (s *State) SnapshotOutputs() OutputSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return OutputSnapshot{values: maps.Clone(s.outputs), seq: s.outSeq}
}

// RestoreOutputs rolls the output state (and its display mirror) back to
// snap. Keys published by a background task since snap keep their value.
func (s *State) RestoreOutputs(snap OutputSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]struct{}, len(s.outputs)+len(snap.values))
	for k := range s.outputs {
		keys[k] = struct{}{}
	}
	for k := range snap.values {
		keys[k] = struct{}{}
	}
	for k := range keys {
		if s.published[k] > snap.seq {
			continue
		}
		if v, ok := snap.values[k]; ok {
			s.outputs[k] = v
			s.display[k] = v
		} else {
			delete(s.outputs, k)
			delete(s.display, k)
		}
	}
}
