// Package vectordb provides node kinds that store embeddings and run
// similarity searches against a Store.
package vectordb

import (
	"context"
	"errors"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/specialistvlad/nodegrid/modules/llm"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DefaultLimit is the default number of search results.
const DefaultLimit = 5

// Module implements the registry.Module interface for this package.
type Module struct {
	Store Store
}

// Add upserts a vector with its payload.
type Add struct {
	node.Base
	store Store
}

func (n *Add) CreateInputs(d *node.Declarer) {
	d.Input("collection", cty.String, cty.StringVal(DefaultCollection))
	d.Input("id", cty.String, cty.StringVal(""))
	d.Input("vector", cty.List(cty.Number), cty.NilVal)
	d.Input("payload", cty.String, cty.StringVal(""))
}

func (n *Add) CreateOutputs(d *node.Declarer) {
	d.Output("point_id", cty.String)
	d.Output(node.StatusOutput, cty.String)
}

func (n *Add) Process(ctx context.Context) error {
	id, vecVal := n.InputValue("id"), n.InputValue("vector")
	if node.IsAbsent(id) || id.AsString() == "" || node.IsAbsent(vecVal) {
		return nil
	}
	vec, err := llm.VectorFrom(vecVal)
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return nil
	}
	coll := stringOr(n.InputValue("collection"), DefaultCollection)
	payload := stringOr(n.InputValue("payload"), "")
	if !n.InputsChanged("collection", "id", "vector", "payload") {
		return nil
	}

	p := Point{ID: id.AsString(), Vector: vec, Payload: payload}
	return n.Background(ctx, func(ctx context.Context) error {
		if err := n.store.Upsert(ctx, coll, p); err != nil {
			return err
		}
		return n.PublishOutput("point_id", cty.StringVal(p.ID))
	})
}

// Search queries the nearest neighbours of a vector.
type Search struct {
	node.Base
	store Store
}

func (n *Search) CreateInputs(d *node.Declarer) {
	d.Input("collection", cty.String, cty.StringVal(DefaultCollection))
	d.Input("vector", cty.List(cty.Number), cty.NilVal)
	d.Input("limit", cty.Number, cty.NumberIntVal(DefaultLimit))
}

func (n *Search) CreateOutputs(d *node.Declarer) {
	d.Output("results", cty.List(cty.String))
	d.Output("scores", cty.List(cty.Number))
	d.Output("payloads", cty.List(cty.String))
	d.Output(node.StatusOutput, cty.String)
}

func (n *Search) Process(ctx context.Context) error {
	vecVal := n.InputValue("vector")
	if node.IsAbsent(vecVal) {
		return nil
	}
	vec, err := llm.VectorFrom(vecVal)
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return nil
	}
	limit := DefaultLimit
	if v := n.InputValue("limit"); !node.IsAbsent(v) {
		if err := gocty.FromCtyValue(v, &limit); err != nil {
			return err
		}
	}
	if limit <= 0 {
		return errors.New("limit must be positive")
	}
	coll := stringOr(n.InputValue("collection"), DefaultCollection)
	if !n.InputsChanged("collection", "vector", "limit") {
		return nil
	}

	return n.Background(ctx, func(ctx context.Context) error {
		matches, err := n.store.Search(ctx, coll, vec, limit)
		if err != nil {
			return err
		}
		ids, scores, payloads := matchLists(matches)
		if err := n.PublishOutput("results", ids); err != nil {
			return err
		}
		if err := n.PublishOutput("scores", scores); err != nil {
			return err
		}
		return n.PublishOutput("payloads", payloads)
	})
}

func matchLists(matches []Match) (ids, scores, payloads cty.Value) {
	if len(matches) == 0 {
		return cty.ListValEmpty(cty.String), cty.ListValEmpty(cty.Number), cty.ListValEmpty(cty.String)
	}
	idVals := make([]cty.Value, len(matches))
	scoreVals := make([]cty.Value, len(matches))
	payloadVals := make([]cty.Value, len(matches))
	for i, m := range matches {
		idVals[i] = cty.StringVal(m.ID)
		scoreVals[i] = cty.NumberFloatVal(m.Score)
		payloadVals[i] = cty.StringVal(m.Payload)
	}
	return cty.ListVal(idVals), cty.ListVal(scoreVals), cty.ListVal(payloadVals)
}

func stringOr(v cty.Value, def string) string {
	if node.IsAbsent(v) || v.AsString() == "" {
		return def
	}
	return v.AsString()
}

// Register registers the kinds with the engine. Without an injected
// Store the module uses a fresh MemoryStore.
func (m *Module) Register(r *registry.Registry) {
	if m.Store == nil {
		m.Store = NewMemoryStore()
	}
	r.RegisterKind(registry.Kind{
		Name:        "Vector Add",
		Category:    "Vector DB",
		Description: "Stores a vector and its payload in a collection.",
		New:         func() node.Node { return &Add{store: m.Store} },
	})
	r.RegisterKind(registry.Kind{
		Name:        "Vector Search",
		Category:    "Vector DB",
		Description: "Finds the most similar vectors in a collection.",
		New:         func() node.Node { return &Search{store: m.Store} },
	})
}
