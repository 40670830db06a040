package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// CallLog records the order in which nodes were processed.
type CallLog struct {
	mu    sync.Mutex
	calls []nodeid.NodeID
}

// Record appends id.
func (l *CallLog) Record(id nodeid.NodeID) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, id)
}

// Calls returns a copy of the recorded ids.
func (l *CallLog) Calls() []nodeid.NodeID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]nodeid.NodeID(nil), l.calls...)
}

// Len returns the number of recorded calls.
func (l *CallLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// Reset clears the log.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// Source has no inputs and publishes a fixed value on "value".
type Source struct {
	node.Base
	Log   *CallLog
	Value cty.Value
}

func (n *Source) CreateInputs(d *node.Declarer) {}

func (n *Source) CreateOutputs(d *node.Declarer) {
	d.Output("value", cty.DynamicPseudoType)
}

func (n *Source) Process(ctx context.Context) error {
	n.Log.Record(n.State().ID())
	if node.IsAbsent(n.Value) {
		return nil
	}
	return n.SetOutputValue("value", n.Value)
}

// Passthrough copies "in" to "out".
type Passthrough struct {
	node.Base
	Log *CallLog
}

func (n *Passthrough) CreateInputs(d *node.Declarer) {
	d.Input("in", cty.DynamicPseudoType, cty.NilVal)
}

func (n *Passthrough) CreateOutputs(d *node.Declarer) {
	d.Output("out", cty.DynamicPseudoType)
}

func (n *Passthrough) Process(ctx context.Context) error {
	n.Log.Record(n.State().ID())
	v := n.InputValue("in")
	if node.IsAbsent(v) {
		return nil
	}
	return n.SetOutputValue("out", v)
}

// ErrBoom is returned by Faulty nodes.
var ErrBoom = errors.New("boom")

// Faulty writes "garbage" to "out" and then fails, by error or by panic.
type Faulty struct {
	node.Base
	Log   *CallLog
	Panic bool
}

func (n *Faulty) CreateInputs(d *node.Declarer) {
	d.Input("in", cty.DynamicPseudoType, cty.NilVal)
}

func (n *Faulty) CreateOutputs(d *node.Declarer) {
	d.Output("out", cty.DynamicPseudoType)
}

func (n *Faulty) Process(ctx context.Context) error {
	n.Log.Record(n.State().ID())
	if err := n.SetOutputValue("out", cty.StringVal("garbage")); err != nil {
		return err
	}
	if n.Panic {
		panic("faulty node exploded")
	}
	return ErrBoom
}

// Sink has no slots at all.
type Sink struct {
	node.Base
	Log *CallLog
}

func (n *Sink) CreateInputs(d *node.Declarer) {}
func (n *Sink) CreateOutputs(d *node.Declarer) {}

func (n *Sink) Process(ctx context.Context) error {
	n.Log.Record(n.State().ID())
	return nil
}

// Module registers the test kinds "Source", "Passthrough", "Faulty",
// "Panicky" and "Sink". Every instance records into Log.
type Module struct {
	Log *CallLog
}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(registry.Kind{Name: "Source", Category: "Test", New: func() node.Node { return &Source{Log: m.Log} }})
	r.RegisterKind(registry.Kind{Name: "Passthrough", Category: "Test", New: func() node.Node { return &Passthrough{Log: m.Log} }})
	r.RegisterKind(registry.Kind{Name: "Faulty", Category: "Test", New: func() node.Node { return &Faulty{Log: m.Log} }})
	r.RegisterKind(registry.Kind{Name: "Panicky", Category: "Test", New: func() node.Node { return &Faulty{Log: m.Log, Panic: true} }})
	r.RegisterKind(registry.Kind{Name: "Sink", Category: "Test", New: func() node.Node { return &Sink{Log: m.Log} }})
}
