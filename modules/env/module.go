package env

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Env reads a process environment variable.
type Env struct {
	node.Base
}

func (n *Env) CreateInputs(d *node.Declarer) {
	d.Input("name", cty.String, cty.StringVal(""))
}

func (n *Env) CreateOutputs(d *node.Declarer) {
	d.Output("value", cty.String)
	d.Output("found", cty.Bool)
	d.Output("all", cty.Map(cty.String))
}

func (n *Env) Process(ctx context.Context) error {
	if err := n.SetOutputValue("all", environ()); err != nil {
		return err
	}

	name := n.InputValue("name")
	if node.IsAbsent(name) || name.AsString() == "" {
		return nil
	}
	value, found := os.LookupEnv(name.AsString())
	if err := n.SetOutputValue("found", cty.BoolVal(found)); err != nil {
		return err
	}
	return n.SetOutputValue("value", cty.StringVal(value))
}

func environ() cty.Value {
	envMap := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = cty.StringVal(pair[1])
		}
	}
	if len(envMap) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	return cty.MapVal(envMap)
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(registry.Kind{
		Name:        "Env",
		Category:    "System",
		Description: "Reads an environment variable.",
		New:         func() node.Node { return &Env{} },
	})
}
