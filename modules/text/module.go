package text

import (
	"context"
	"strings"
	"sync"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Constant publishes the text typed into its widget.
type Constant struct {
	node.Base
	key string
	def string
}

func (n *Constant) CreateInputs(d *node.Declarer) {
	d.Input(n.key, cty.String, cty.StringVal(n.def))
}

func (n *Constant) CreateOutputs(d *node.Declarer) {
	d.Output(n.key, cty.String)
}

func (n *Constant) Process(ctx context.Context) error {
	return n.SetOutputValue(n.key, n.InputValue(n.key))
}

// NewConstant returns a text constant whose input and output share key.
func NewConstant(key, def string) *Constant {
	return &Constant{key: key, def: def}
}

// Concat joins two strings with a separator.
type Concat struct {
	node.Base
}

func (n *Concat) CreateInputs(d *node.Declarer) {
	d.Input("a", cty.String, cty.StringVal(""))
	d.Input("b", cty.String, cty.StringVal(""))
	d.Input("sep", cty.String, cty.StringVal(""))
}

func (n *Concat) CreateOutputs(d *node.Declarer) {
	d.Output("result", cty.String)
}

func (n *Concat) Process(ctx context.Context) error {
	parts := make([]string, 0, 2)
	for _, k := range []string{"a", "b"} {
		if v := n.InputValue(k); !node.IsAbsent(v) {
			parts = append(parts, v.AsString())
		}
	}
	sep := ""
	if v := n.InputValue("sep"); !node.IsAbsent(v) {
		sep = v.AsString()
	}
	return n.SetOutputValue("result", cty.StringVal(strings.Join(parts, sep)))
}

// Output is a sink that logs every new value it receives.
type Output struct {
	node.Base

	mu   sync.Mutex
	last string
}

func (n *Output) CreateInputs(d *node.Declarer) {
	d.Input("value", cty.DynamicPseudoType, cty.NilVal)
}

func (n *Output) CreateOutputs(d *node.Declarer) {}

func (n *Output) Process(ctx context.Context) error {
	v := n.InputValue("value")
	if node.IsAbsent(v) {
		return nil
	}
	rendered, err := Render(v)
	if err != nil {
		return err
	}

	n.mu.Lock()
	changed := rendered != n.last
	n.last = rendered
	n.mu.Unlock()

	if changed {
		ctxlog.FromContext(ctx).Info("📝 Output", "nodeID", n.State().ID(), "label", n.State().Label(), "value", rendered)
	}
	return nil
}

// Last returns the most recently rendered value.
func (n *Output) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Render formats a value for display: strings verbatim, everything else
// as JSON.
func Render(v cty.Value) (string, error) {
	if v.Type() == cty.String {
		return v.AsString(), nil
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(registry.Kind{
		Name:        "Text",
		Category:    "Text",
		Description: "A constant piece of text.",
		New:         func() node.Node { return NewConstant("text", "") },
	})
	r.RegisterKind(registry.Kind{
		Name:        "Concat",
		Category:    "Text",
		Description: "Joins a and b with sep.",
		New:         func() node.Node { return &Concat{} },
	})
	r.RegisterKind(registry.Kind{
		Name:        "Text Output",
		Category:    "Text",
		Description: "Displays and logs any incoming value.",
		New:         func() node.Node { return &Output{} },
	})
}
