package api

import (
	"encoding/json"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// NodeView is the JSON form of a node instance.
type NodeView struct {
	ID       nodeid.NodeID `json:"id"`
	Kind     string        `json:"kind"`
	Label    string        `json:"label"`
	Position node.Position `json:"position"`
	Inputs   []SlotView    `json:"inputs"`
	Outputs  []SlotView    `json:"outputs"`
}

// SlotView is the JSON form of one slot. Widget is only set for inputs.
type SlotView struct {
	Key    string          `json:"key"`
	Attr   nodeid.AttrID   `json:"attr"`
	Type   string          `json:"type"`
	Value  json.RawMessage `json:"value,omitempty"`
	Widget json.RawMessage `json:"widget,omitempty"`
}

func viewOf(st *node.State) NodeView {
	v := NodeView{
		ID:       st.ID(),
		Kind:     st.Kind(),
		Label:    st.Label(),
		Position: st.Position(),
		Inputs:   []SlotView{},
		Outputs:  []SlotView{},
	}
	for _, spec := range st.Inputs() {
		v.Inputs = append(v.Inputs, SlotView{
			Key:    spec.Key,
			Attr:   spec.Attr,
			Type:   spec.Type.FriendlyName(),
			Value:  render(st.LinkedValue(spec.Key)),
			Widget: render(st.WidgetValue(spec.Key)),
		})
	}
	for _, spec := range st.Outputs() {
		v.Outputs = append(v.Outputs, SlotView{
			Key:   spec.Key,
			Attr:  spec.Attr,
			Type:  spec.Type.FriendlyName(),
			Value: render(st.DisplayValue(spec.Key)),
		})
	}
	return v
}

// render encodes v as plain JSON, or nil when v is absent.
func render(v cty.Value) json.RawMessage {
	if node.IsAbsent(v) {
		return nil
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil
	}
	return b
}
