package hclgraph

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/fsutil"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Extension is the file extension searched for in directories.
const Extension = ".hcl"

// fileRoot is used to decode all top-level blocks from any file.
type fileRoot struct {
	Engines []*engineBlock `hcl:"engine,block"`
	Nodes   []*nodeBlock   `hcl:"node,block"`
	Links   []*linkBlock   `hcl:"link,block"`
}

type engineBlock struct {
	Rate *float64 `hcl:"rate,optional"`
}

type nodeBlock struct {
	Name     string         `hcl:"name,label"`
	Kind     hcl.Expression `hcl:"kind"`
	Label    string         `hcl:"label,optional"`
	Position []float64      `hcl:"position,optional"`
	Inputs   hcl.Expression `hcl:"inputs,optional"`
}

type linkBlock struct {
	From hcl.Expression `hcl:"from"`
	To   hcl.Expression `hcl:"to"`
}

// Load finds all definition files under paths, parses them and merges
// them into a single Definition.
func Load(ctx context.Context, paths ...string) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "pathCount", len(paths))

	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := newEvalContext()
	def := &Definition{}
	names := make(map[string]hcl.Range)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, eb := range root.Engines {
			if eb.Rate != nil {
				rate := *eb.Rate
				def.Rate = &rate
			}
		}
		for _, nb := range root.Nodes {
			nd, err := translateNode(nb, evalCtx)
			if err != nil {
				return nil, err
			}
			if prev, dup := names[nd.Name]; dup {
				return nil, fmt.Errorf("%s: node %q already declared at %s", nd.Range, nd.Name, prev)
			}
			names[nd.Name] = nd.Range
			def.Nodes = append(def.Nodes, nd)
		}
		for _, lb := range root.Links {
			ld, err := translateLink(lb, evalCtx)
			if err != nil {
				return nil, err
			}
			def.Links = append(def.Links, ld)
		}
	}

	for _, l := range def.Links {
		for _, ref := range []nodeid.SlotRef{l.From, l.To} {
			if _, ok := names[ref.Node]; !ok {
				return nil, fmt.Errorf("%s: link references undeclared node %q", l.Range, ref.Node)
			}
		}
	}

	logger.Debug("HCL loading complete.", "nodes", len(def.Nodes), "links", len(def.Links))
	return def, nil
}

func translateNode(nb *nodeBlock, evalCtx *hcl.EvalContext) (NodeDef, error) {
	nd := NodeDef{Name: nb.Name, Label: nb.Label, Range: nb.Kind.Range()}
	if !nodeNameValid(nb.Name) {
		return nd, fmt.Errorf("%s: invalid node name %q", nd.Range, nb.Name)
	}

	kind, err := evalString(nb.Kind, evalCtx)
	if err != nil {
		return nd, err
	}
	nd.Kind = kind

	switch len(nb.Position) {
	case 0:
	case 2:
		nd.Position = node.Position{X: nb.Position[0], Y: nb.Position[1]}
	default:
		return nd, fmt.Errorf("%s: position of node %q must have two elements, got %d", nd.Range, nb.Name, len(nb.Position))
	}

	if nb.Inputs == nil {
		return nd, nil
	}
	val, diags := nb.Inputs.Value(evalCtx)
	if diags.HasErrors() {
		return nd, fmt.Errorf("inputs of node %q: %w", nb.Name, diags)
	}
	if val.IsNull() {
		return nd, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nd, fmt.Errorf("%s: inputs of node %q must be an object, got %s", nb.Inputs.Range(), nb.Name, val.Type().FriendlyName())
	}
	nd.Inputs = make(map[string]cty.Value, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		nd.Inputs[k.AsString()] = v
	}
	return nd, nil
}

func translateLink(lb *linkBlock, evalCtx *hcl.EvalContext) (LinkDef, error) {
	ld := LinkDef{Range: lb.From.Range()}
	from, err := evalRef(lb.From, evalCtx)
	if err != nil {
		return ld, err
	}
	to, err := evalRef(lb.To, evalCtx)
	if err != nil {
		return ld, err
	}
	ld.From, ld.To = from, to
	return ld, nil
}

func evalString(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diags
	}
	var s string
	if err := gocty.FromCtyValue(val, &s); err != nil {
		return "", fmt.Errorf("%s: expected a string: %w", expr.Range(), err)
	}
	return s, nil
}

func evalRef(expr hcl.Expression, evalCtx *hcl.EvalContext) (nodeid.SlotRef, error) {
	raw, err := evalString(expr, evalCtx)
	if err != nil {
		return nodeid.SlotRef{}, err
	}
	ref, err := nodeid.ParseSlotRef(raw)
	if err != nil {
		return nodeid.SlotRef{}, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return ref, nil
}

func nodeNameValid(name string) bool {
	_, err := nodeid.ParseSlotRef(name + ".x")
	return err == nil
}

// newEvalContext exposes the process environment as `env.NAME`.
func newEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}
