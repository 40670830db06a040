package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/nodegrid/internal/api"
	"github.com/specialistvlad/nodegrid/internal/builder"
	"github.com/specialistvlad/nodegrid/internal/engine"
	"github.com/specialistvlad/nodegrid/internal/links"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/specialistvlad/nodegrid/internal/statefile"
	"github.com/specialistvlad/nodegrid/internal/testutil"
	"github.com/specialistvlad/nodegrid/modules/arith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t   *testing.T
	eng *engine.Engine
	srv *api.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, _ := testutil.Context(t)
	reg := registry.New()
	(&arith.Module{}).Register(reg)
	eng := engine.New(ctx, reg, engine.Options{})
	t.Cleanup(func() { _ = eng.Close(ctx) })
	return &fixture{t: t, eng: eng, srv: api.New(ctx, eng)}
}

func (f *fixture) do(method, path string, body any) (int, []byte) {
	f.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.srv.App().Test(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	return resp.StatusCode, data
}

func (f *fixture) createAdd(label string) api.NodeView {
	f.t.Helper()
	code, body := f.do(http.MethodPost, "/nodes", api.CreateNodeRequest{Kind: "Add", Label: label})
	require.Equal(f.t, http.StatusCreated, code, string(body))
	var v api.NodeView
	require.NoError(f.t, json.Unmarshal(body, &v))
	return v
}

func slotAttr(t *testing.T, slots []api.SlotView, key string) api.SlotView {
	t.Helper()
	for _, s := range slots {
		if s.Key == key {
			return s
		}
	}
	t.Fatalf("slot %q not found", key)
	return api.SlotView{}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", string(body))
}

func TestKinds(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(http.MethodGet, "/kinds", nil)
	require.Equal(t, http.StatusOK, code)

	var cats []registry.Category
	require.NoError(t, json.Unmarshal(body, &cats))
	require.Len(t, cats, 1)
	assert.Equal(t, "Math", cats[0].Name)
	assert.Len(t, cats[0].Kinds, 2)
}

func TestNodeLifecycle(t *testing.T) {
	f := newFixture(t)
	first := f.createAdd("first")
	second := f.createAdd("second")
	assert.Equal(t, "first", first.Label)
	assert.Len(t, first.Inputs, 2)

	code, _ := f.do(http.MethodPut, fmt.Sprintf("/nodes/%d/widgets/a", first.ID), map[string]any{"value": 2})
	require.Equal(t, http.StatusOK, code)
	code, _ = f.do(http.MethodPut, fmt.Sprintf("/nodes/%d/widgets/b", first.ID), map[string]any{"value": "3"})
	require.Equal(t, http.StatusOK, code)

	ls := []links.Link{{
		Source: slotAttr(t, first.Outputs, "result").Attr,
		Target: slotAttr(t, second.Inputs, "a").Attr,
	}}
	code, body := f.do(http.MethodPut, "/links", ls)
	require.Equal(t, http.StatusOK, code)
	var report builder.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 1, report.Accepted)

	ctx, _ := testutil.Context(t)
	f.eng.Tick(ctx)
	f.eng.Tick(ctx)

	code, body = f.do(http.MethodGet, fmt.Sprintf("/nodes/%d", second.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var view api.NodeView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.JSONEq(t, "5", string(slotAttr(t, view.Outputs, "result").Value))

	code, _ = f.do(http.MethodDelete, fmt.Sprintf("/nodes/%d", first.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, f.eng.Links())

	code, _ = f.do(http.MethodGet, fmt.Sprintf("/nodes/%d", first.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrors(t *testing.T) {
	f := newFixture(t)
	n := f.createAdd("")

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{name: "unknown kind", method: http.MethodPost, path: "/nodes", body: api.CreateNodeRequest{Kind: "Nope"}, code: http.StatusUnprocessableEntity},
		{name: "missing kind", method: http.MethodPost, path: "/nodes", body: map[string]any{}, code: http.StatusBadRequest},
		{name: "bad id", method: http.MethodGet, path: "/nodes/abc", code: http.StatusBadRequest},
		{name: "unknown node", method: http.MethodDelete, path: "/nodes/999", code: http.StatusNotFound},
		{name: "unknown widget", method: http.MethodPut, path: fmt.Sprintf("/nodes/%d/widgets/zzz", n.ID), body: map[string]any{"value": 1}, code: http.StatusNotFound},
		{name: "unconvertible widget", method: http.MethodPut, path: fmt.Sprintf("/nodes/%d/widgets/a", n.ID), body: map[string]any{"value": "seven"}, code: http.StatusUnprocessableEntity},
		{name: "missing rate", method: http.MethodPut, path: "/rate", body: map[string]any{}, code: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := f.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.code, code, string(body))
			var msg map[string]string
			require.NoError(t, json.Unmarshal(body, &msg))
			assert.NotEmpty(t, msg["error"])
		})
	}
}

func TestWidgetEditsKeepEachOther(t *testing.T) {
	f := newFixture(t)
	n := f.createAdd("")

	code, _ := f.do(http.MethodPut, fmt.Sprintf("/nodes/%d/widgets/a", n.ID), map[string]any{"value": 2})
	require.Equal(t, http.StatusOK, code)
	code, _ = f.do(http.MethodPut, fmt.Sprintf("/nodes/%d/widgets/b", n.ID), map[string]any{"value": 3})
	require.Equal(t, http.StatusOK, code)

	ctx, _ := testutil.Context(t)
	live, ok := f.eng.Node(ctx, n.ID)
	require.True(t, ok)
	a, b := live.State().WidgetValue("a"), live.State().WidgetValue("b")
	require.False(t, node.IsAbsent(a), "widget a lost after editing widget b")
	require.False(t, node.IsAbsent(b))
	av, _ := a.AsBigFloat().Float64()
	bv, _ := b.AsBigFloat().Float64()
	assert.Equal(t, 2.0, av)
	assert.Equal(t, 3.0, bv)

	code, body := f.do(http.MethodGet, fmt.Sprintf("/nodes/%d", n.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var view api.NodeView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.JSONEq(t, "2", string(slotAttr(t, view.Inputs, "a").Widget))
	assert.JSONEq(t, "3", string(slotAttr(t, view.Inputs, "b").Widget))
}

func TestWidgetNullClears(t *testing.T) {
	f := newFixture(t)
	n := f.createAdd("")

	code, _ := f.do(http.MethodPut, fmt.Sprintf("/nodes/%d/widgets/a", n.ID), map[string]any{"value": nil})
	require.Equal(t, http.StatusOK, code)

	ctx, _ := testutil.Context(t)
	live, ok := f.eng.Node(ctx, n.ID)
	require.True(t, ok)
	assert.True(t, node.IsAbsent(live.State().WidgetValue("a")))
}

func TestRateAndRun(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(http.MethodPut, "/rate", map[string]any{"rate": 0})
	require.Equal(t, http.StatusOK, code)
	var rate map[string]any
	require.NoError(t, json.Unmarshal(body, &rate))
	assert.Equal(t, 0.1, rate["rate"])
	assert.Equal(t, "10s", rate["interval"])

	code, _ = f.do(http.MethodPost, "/run/start", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "running", f.eng.State().String())

	code, _ = f.do(http.MethodPost, "/run/stop", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stopped", f.eng.State().String())

	code, body = f.do(http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, code)
	var status engine.Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, f.eng.Session(), status.Session)
}

func TestStateRoundTrip(t *testing.T) {
	f := newFixture(t)
	first := f.createAdd("first")
	second := f.createAdd("second")
	f.do(http.MethodPut, "/links", []links.Link{{
		Source: slotAttr(t, first.Outputs, "result").Attr,
		Target: slotAttr(t, second.Inputs, "b").Attr,
	}})

	code, body := f.do(http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, code)
	var doc statefile.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Links, 1)

	other := newFixture(t)
	code, body = other.do(http.MethodPost, "/state", doc)
	require.Equal(t, http.StatusOK, code, string(body))

	ctx, _ := testutil.Context(t)
	assert.Len(t, other.eng.NodeIDs(ctx), 2)
	assert.Len(t, other.eng.Links(), 1)
}
