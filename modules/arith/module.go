package arith

import (
	"context"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// binary is the shared shape of the two-operand math nodes.
type binary struct {
	node.Base
	op   func(a, b cty.Value) cty.Value
	name string
}

func (n *binary) CreateInputs(d *node.Declarer) {
	d.Input("a", cty.Number, cty.NumberIntVal(0))
	d.Input("b", cty.Number, cty.NumberIntVal(0))
}

func (n *binary) CreateOutputs(d *node.Declarer) {
	d.Output("result", cty.Number)
}

// Process computes the result when both operands are present. A missing
// operand leaves the previous result in place.
func (n *binary) Process(ctx context.Context) error {
	a, b := n.InputValue("a"), n.InputValue("b")
	if node.IsAbsent(a) || node.IsAbsent(b) {
		ctxlog.FromContext(ctx).Debug("Operand missing, result unchanged.", "nodeID", n.State().ID(), "op", n.name)
		return nil
	}
	return n.SetOutputValue("result", n.op(a, b))
}

// NewAdd returns an Add node: result = a + b.
func NewAdd() node.Node {
	return &binary{name: "add", op: func(a, b cty.Value) cty.Value { return a.Add(b) }}
}

// NewMultiply returns a Multiply node: result = a * b.
func NewMultiply() node.Node {
	return &binary{name: "multiply", op: func(a, b cty.Value) cty.Value { return a.Multiply(b) }}
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(registry.Kind{
		Name:        "Add",
		Category:    "Math",
		Description: "Adds two numbers.",
		New:         NewAdd,
	})
	r.RegisterKind(registry.Kind{
		Name:        "Multiply",
		Category:    "Math",
		Description: "Multiplies two numbers.",
		New:         NewMultiply,
	})
}
