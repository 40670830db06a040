package hclgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/nodegrid/internal/builder"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/engine"
	"github.com/specialistvlad/nodegrid/internal/links"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Definition is a parsed graph definition.
type Definition struct {
	// Rate is nil when no engine block sets it.
	Rate  *float64
	Nodes []NodeDef
	Links []LinkDef
}

// NodeDef declares one node instance.
type NodeDef struct {
	Name     string
	Kind     string
	Label    string
	Position node.Position
	Inputs   map[string]cty.Value
	Range    hcl.Range
}

// LinkDef connects two named slots.
type LinkDef struct {
	From  nodeid.SlotRef
	To    nodeid.SlotRef
	Range hcl.Range
}

// Applied describes the result of Definition.Apply.
type Applied struct {
	// IDs maps each declared node name to its allocated id.
	IDs    map[string]nodeid.NodeID
	Report builder.Report
}

// Apply creates the declared nodes in eng, sets their widget values,
// replaces the engine's link set with the declared links and applies the
// rate. On error every node created so far is removed again.
func (d *Definition) Apply(ctx context.Context, eng *engine.Engine) (applied Applied, err error) {
	logger := ctxlog.FromContext(ctx)
	applied.IDs = make(map[string]nodeid.NodeID, len(d.Nodes))

	defer func() {
		if err == nil {
			return
		}
		for _, id := range applied.IDs {
			if _, uerr := eng.UnregisterNode(ctx, id); uerr != nil {
				err = errors.Join(err, uerr)
			}
		}
		applied.IDs = nil
	}()

	for _, nd := range d.Nodes {
		label := nd.Label
		if label == "" {
			label = nd.Name
		}
		st, err := eng.CreateNode(ctx, nd.Kind, label, nd.Position)
		if err != nil {
			return applied, fmt.Errorf("%s: node %q: %w", nd.Range, nd.Name, err)
		}
		applied.IDs[nd.Name] = st.ID()

		keys := make([]string, 0, len(nd.Inputs))
		for k := range nd.Inputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := st.SetWidgetValue(k, nd.Inputs[k]); err != nil {
				return applied, fmt.Errorf("%s: node %q: %w", nd.Range, nd.Name, err)
			}
		}
	}

	resolved := make([]links.Link, 0, len(d.Links))
	for _, ld := range d.Links {
		l, err := eng.ResolveLink(ctx, engine.LogicalLink{
			SourceNode: applied.IDs[ld.From.Node],
			SourceKey:  ld.From.Key,
			TargetNode: applied.IDs[ld.To.Node],
			TargetKey:  ld.To.Key,
		})
		if err != nil {
			return applied, fmt.Errorf("%s: link %s -> %s: %w", ld.Range, ld.From, ld.To, err)
		}
		resolved = append(resolved, l)
	}
	applied.Report = eng.UpdateLinks(ctx, resolved)

	if d.Rate != nil {
		eng.SetRate(*d.Rate)
	}

	logger.Info("📐 Graph definition applied.", "nodes", len(applied.IDs), "links", applied.Report.Accepted, "discarded", len(applied.Report.Discarded), "rate", eng.Rate())
	return applied, nil
}
