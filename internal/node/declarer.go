package node

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/attrstore"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// SlotSpec describes one declared slot.
type SlotSpec struct {
	Key  string
	Type cty.Type
	Attr nodeid.AttrID
	// Default is the initial widget value of an input slot.
	Default cty.Value
}

// Declarer is handed to CreateInputs and CreateOutputs. Each declared slot
// receives a fresh attribute id that is registered in the attribute store.
type Declarer struct {
	ctx   context.Context
	state *State
	alloc *nodeid.Allocator
	attrs attrstore.Store
	err   error
}

// Input declares an input slot with an optional default widget value.
// Pass cty.NilVal for no default. Declaring the same key twice panics.
func (d *Declarer) Input(key string, ty cty.Type, def cty.Value) nodeid.AttrID {
	if _, exists := d.state.inputIndex[key]; exists {
		panic(fmt.Sprintf("node: input slot %q declared twice", key))
	}
	if !IsAbsent(def) {
		conv, err := Coerce(def, ty)
		if err != nil {
			panic(fmt.Sprintf("node: default of input slot %q: %v", key, err))
		}
		def = conv
	}

	id := d.register(nodeid.Input, key)
	d.state.inputIndex[key] = len(d.state.inputSpecs)
	d.state.inputSpecs = append(d.state.inputSpecs, SlotSpec{Key: key, Type: ty, Attr: id, Default: def})
	if !IsAbsent(def) {
		d.state.widgets[key] = def
	}
	return id
}

// Output declares an output slot. Declaring the same key twice panics.
func (d *Declarer) Output(key string, ty cty.Type) nodeid.AttrID {
	if _, exists := d.state.outputIndex[key]; exists {
		panic(fmt.Sprintf("node: output slot %q declared twice", key))
	}

	id := d.register(nodeid.Output, key)
	d.state.outputIndex[key] = len(d.state.outputSpecs)
	d.state.outputSpecs = append(d.state.outputSpecs, SlotSpec{Key: key, Type: ty, Attr: id})
	return id
}

func (d *Declarer) register(dir nodeid.Direction, key string) nodeid.AttrID {
	id := d.alloc.NextAttr()
	if d.err != nil {
		return id
	}
	entry := attrstore.Entry{Node: d.state.id, Direction: dir, Key: key}
	if err := d.attrs.Register(d.ctx, id, entry); err != nil {
		d.err = err
	}
	return id
}
