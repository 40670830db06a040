package socketio

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/nodegrid/internal/inmemoryattrs"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func newEmit(t *testing.T) (*Emit, *node.State) {
	t.Helper()
	var alloc nodeid.Allocator
	n := &Emit{}
	st, err := node.Instantiate(context.Background(), n, 1, "SocketIO Emit", &alloc, inmemoryattrs.New())
	require.NoError(t, err)
	return n, st
}

func TestEmit_SkipsWithoutURLOrValue(t *testing.T) {
	n, st := newEmit(t)
	require.NoError(t, n.Process(context.Background()))
	assert.True(t, node.IsAbsent(st.OutputValue("status")))

	require.NoError(t, st.SetWidgetValue("url", cty.StringVal("http://localhost:3000")))
	require.NoError(t, n.Process(context.Background()))
	assert.True(t, node.IsAbsent(st.OutputValue("status")))
}

func TestEmit_RelativeURLFails(t *testing.T) {
	n, st := newEmit(t)
	require.NoError(t, st.SetWidgetValue("url", cty.StringVal("/socket.io")))
	require.NoError(t, st.SetInputValueFromLink("value", cty.NumberIntVal(1)))

	require.NoError(t, n.Process(context.Background()))
	assert.Contains(t, st.OutputValue("status").AsString(), "must be absolute")
}

func TestEmit_BadTimeout(t *testing.T) {
	n, st := newEmit(t)
	require.NoError(t, st.SetWidgetValue("url", cty.StringVal("http://localhost:3000")))
	require.NoError(t, st.SetWidgetValue("timeout", cty.StringVal("soon")))
	require.NoError(t, st.SetInputValueFromLink("value", cty.NumberIntVal(1)))

	assert.ErrorContains(t, n.Process(context.Background()), "failed to parse timeout")
}

func TestConvertRoundTrip(t *testing.T) {
	in := cty.ObjectVal(map[string]cty.Value{
		"name":  cty.StringVal("grid"),
		"ok":    cty.True,
		"count": cty.NumberIntVal(3),
		"tags":  cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
	})

	data, err := toInterface(in)
	require.NoError(t, err)
	expected := map[string]any{"name": "grid", "ok": true, "count": float64(3), "tags": []any{"a", "b"}}
	if diff := cmp.Diff(expected, data); diff != "" {
		t.Errorf("toInterface mismatch (-want +got):\n%s", diff)
	}

	back, err := fromInterface(data)
	require.NoError(t, err)
	assert.True(t, back.GetAttr("name").RawEquals(cty.StringVal("grid")))
	assert.Equal(t, 2, back.GetAttr("tags").LengthInt())
}
