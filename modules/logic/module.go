package logic

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// If selects between two values.
type If struct {
	node.Base
}

func (n *If) CreateInputs(d *node.Declarer) {
	d.Input("cond", cty.Bool, cty.False)
	d.Input("then", cty.DynamicPseudoType, cty.NilVal)
	d.Input("else", cty.DynamicPseudoType, cty.NilVal)
}

func (n *If) CreateOutputs(d *node.Declarer) {
	d.Output("result", cty.DynamicPseudoType)
}

func (n *If) Process(ctx context.Context) error {
	cond := n.InputValue("cond")
	if node.IsAbsent(cond) {
		return nil
	}
	branch := "else"
	if cond.True() {
		branch = "then"
	}
	v := n.InputValue(branch)
	if node.IsAbsent(v) {
		return nil
	}
	return n.SetOutputValue("result", v)
}

// Compare compares two numbers with a configurable operator.
type Compare struct {
	node.Base
}

func (n *Compare) CreateInputs(d *node.Declarer) {
	d.Input("a", cty.Number, cty.NumberIntVal(0))
	d.Input("b", cty.Number, cty.NumberIntVal(0))
	d.Input("op", cty.String, cty.StringVal(">"))
}

func (n *Compare) CreateOutputs(d *node.Declarer) {
	d.Output("result", cty.Bool)
}

func (n *Compare) Process(ctx context.Context) error {
	a, b, op := n.InputValue("a"), n.InputValue("b"), n.InputValue("op")
	if node.IsAbsent(a) || node.IsAbsent(b) || node.IsAbsent(op) {
		return nil
	}

	var res cty.Value
	switch op.AsString() {
	case ">":
		res = a.GreaterThan(b)
	case ">=":
		res = a.GreaterThanOrEqualTo(b)
	case "<":
		res = a.LessThan(b)
	case "<=":
		res = a.LessThanOrEqualTo(b)
	case "==":
		res = a.Equals(b)
	case "!=":
		res = a.NotEqual(b)
	default:
		return fmt.Errorf("unsupported operator %q", op.AsString())
	}
	return n.SetOutputValue("result", res)
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(registry.Kind{
		Name:        "If",
		Category:    "Logic",
		Description: "Outputs 'then' when cond is true, otherwise 'else'.",
		New:         func() node.Node { return &If{} },
	})
	r.RegisterKind(registry.Kind{
		Name:        "Compare",
		Category:    "Logic",
		Description: "Compares two numbers using >, >=, <, <=, == or !=.",
		New:         func() node.Node { return &Compare{} },
	})
}
