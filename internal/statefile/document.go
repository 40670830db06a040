package statefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/nodegrid/internal/builder"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/engine"
	"github.com/specialistvlad/nodegrid/internal/links"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Version is the document format version written by Capture.
const Version = 1

// Document is the persisted form of a graph.
type Document struct {
	ID      uuid.UUID    `json:"id"`
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	Rate    float64      `json:"rate"`
	Nodes   []NodeRecord `json:"nodes"`
	Links   []LinkRecord `json:"links"`
}

// NodeRecord is one persisted node.
type NodeRecord struct {
	ID       nodeid.NodeID `json:"id"`
	Kind     string        `json:"kind"`
	Label    string        `json:"label,omitempty"`
	Position node.Position `json:"position"`
	Widgets  Values        `json:"widgets,omitempty"`
	Inputs   Values        `json:"inputs,omitempty"`
	Outputs  Values        `json:"outputs,omitempty"`
}

// LinkRecord is a link in logical form.
type LinkRecord struct {
	SourceNode nodeid.NodeID `json:"source_node"`
	SourceKey  string        `json:"source_key"`
	TargetNode nodeid.NodeID `json:"target_node"`
	TargetKey  string        `json:"target_key"`
}

// Values maps slot keys to cty values encoded as JSON together with their
// type, so that they decode back to exactly the same value.
type Values map[string]json.RawMessage

// EncodeValues encodes every non-absent value of m.
func EncodeValues(m map[string]cty.Value) (Values, error) {
	out := make(Values, len(m))
	for k, v := range m {
		if node.IsAbsent(v) {
			continue
		}
		b, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		out[k] = b
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Decode decodes every value of vs.
func (vs Values) Decode() (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(vs))
	for k, raw := range vs {
		v, err := ctyjson.Unmarshal(raw, cty.DynamicPseudoType)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Capture builds a Document from the live engine.
func Capture(ctx context.Context, eng *engine.Engine) (*Document, error) {
	doc := &Document{
		ID:      uuid.New(),
		Version: Version,
		SavedAt: time.Now().UTC(),
		Rate:    eng.Rate(),
	}

	for _, snap := range eng.Snapshots(ctx) {
		rec := NodeRecord{ID: snap.ID, Kind: snap.Kind, Label: snap.Label, Position: snap.Position}
		var err error
		if rec.Widgets, err = EncodeValues(snap.Widgets); err != nil {
			return nil, fmt.Errorf("node %s widgets: %w", snap.ID, err)
		}
		if rec.Inputs, err = EncodeValues(snap.Inputs); err != nil {
			return nil, fmt.Errorf("node %s inputs: %w", snap.ID, err)
		}
		if rec.Outputs, err = EncodeValues(snap.Outputs); err != nil {
			return nil, fmt.Errorf("node %s outputs: %w", snap.ID, err)
		}
		doc.Nodes = append(doc.Nodes, rec)
	}

	for _, l := range eng.LogicalLinks(ctx) {
		doc.Links = append(doc.Links, LinkRecord(l))
	}

	ctxlog.FromContext(ctx).Debug("State captured.", "document", doc.ID, "nodes", len(doc.Nodes), "links", len(doc.Links))
	return doc, nil
}

// Restored describes the result of Restore.
type Restored struct {
	// IDs maps persisted node ids to the ids allocated on restore.
	IDs    map[nodeid.NodeID]nodeid.NodeID
	Report builder.Report
}

// Restore replaces the engine's graph with the document's. Nodes of
// unknown kind, values that no longer fit their slot and links whose
// endpoints cannot be resolved are skipped; they are reported in the
// returned error while everything else is restored.
func Restore(ctx context.Context, eng *engine.Engine, doc *Document) (Restored, error) {
	logger := ctxlog.FromContext(ctx)
	res := Restored{IDs: make(map[nodeid.NodeID]nodeid.NodeID, len(doc.Nodes))}
	var errs []error

	for _, id := range eng.NodeIDs(ctx) {
		if _, err := eng.UnregisterNode(ctx, id); err != nil {
			return res, fmt.Errorf("clearing node %s: %w", id, err)
		}
	}

	records := append([]NodeRecord(nil), doc.Nodes...)
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	for _, rec := range records {
		st, err := eng.CreateNode(ctx, rec.Kind, rec.Label, rec.Position)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", rec.ID, err))
			continue
		}
		res.IDs[rec.ID] = st.ID()

		snap := node.Snapshot{Label: rec.Label, Position: rec.Position}
		if snap.Widgets, err = rec.Widgets.Decode(); err != nil {
			errs = append(errs, fmt.Errorf("node %s widgets: %w", rec.ID, err))
		}
		if snap.Inputs, err = rec.Inputs.Decode(); err != nil {
			errs = append(errs, fmt.Errorf("node %s inputs: %w", rec.ID, err))
		}
		if snap.Outputs, err = rec.Outputs.Decode(); err != nil {
			errs = append(errs, fmt.Errorf("node %s outputs: %w", rec.ID, err))
		}
		if err := st.Import(snap); err != nil {
			errs = append(errs, err)
		}
	}

	resolved := make([]links.Link, 0, len(doc.Links))
	for _, lr := range doc.Links {
		src, srcOK := res.IDs[lr.SourceNode]
		tgt, tgtOK := res.IDs[lr.TargetNode]
		if !srcOK || !tgtOK {
			errs = append(errs, fmt.Errorf("link %s.%s -> %s.%s: %w", lr.SourceNode, lr.SourceKey, lr.TargetNode, lr.TargetKey, engine.ErrNodeNotFound))
			continue
		}
		l, err := eng.ResolveLink(ctx, engine.LogicalLink{SourceNode: src, SourceKey: lr.SourceKey, TargetNode: tgt, TargetKey: lr.TargetKey})
		if err != nil {
			errs = append(errs, fmt.Errorf("link %s.%s -> %s.%s: %w", lr.SourceNode, lr.SourceKey, lr.TargetNode, lr.TargetKey, err))
			continue
		}
		resolved = append(resolved, l)
	}
	res.Report = eng.UpdateLinks(ctx, resolved)

	if doc.Rate > 0 {
		eng.SetRate(doc.Rate)
	}

	logger.Info("💾 State restored.", "document", doc.ID, "nodes", len(res.IDs), "links", res.Report.Accepted, "problems", len(errs))
	return res, errors.Join(errs...)
}
