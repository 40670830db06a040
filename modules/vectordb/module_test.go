package vectordb

import (
	"context"
	"testing"

	"github.com/specialistvlad/nodegrid/internal/inmemoryattrs"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func vector(xs ...int64) cty.Value {
	vals := make([]cty.Value, len(xs))
	for i, x := range xs {
		vals[i] = cty.NumberIntVal(x)
	}
	return cty.ListVal(vals)
}

func TestAddThenSearch(t *testing.T) {
	store := NewMemoryStore()
	r := registry.New()
	(&Module{Store: store}).Register(r)

	var alloc nodeid.Allocator
	attrs := inmemoryattrs.New()
	ctx := context.Background()

	add, err := r.New("Vector Add")
	require.NoError(t, err)
	addState, err := node.Instantiate(ctx, add, 1, "Vector Add", &alloc, attrs)
	require.NoError(t, err)

	require.NoError(t, addState.SetWidgetValue("id", cty.StringVal("doc-1")))
	require.NoError(t, addState.SetWidgetValue("payload", cty.StringVal(`{"title":"one"}`)))
	require.NoError(t, addState.SetInputValueFromLink("vector", vector(1, 0)))
	require.NoError(t, add.Process(ctx))

	require.Equal(t, 1, store.Len(DefaultCollection))
	assert.True(t, addState.OutputValue("point_id").RawEquals(cty.StringVal("doc-1")))
	assert.True(t, addState.OutputValue("status").RawEquals(cty.StringVal(node.StatusDone)))

	search, err := r.New("Vector Search")
	require.NoError(t, err)
	searchState, err := node.Instantiate(ctx, search, 2, "Vector Search", &alloc, attrs)
	require.NoError(t, err)

	require.NoError(t, searchState.SetInputValueFromLink("vector", vector(3, 0)))
	require.NoError(t, search.Process(ctx))

	assert.True(t, searchState.OutputValue("results").RawEquals(cty.ListVal([]cty.Value{cty.StringVal("doc-1")})))
	assert.True(t, searchState.OutputValue("payloads").RawEquals(cty.ListVal([]cty.Value{cty.StringVal(`{"title":"one"}`)})))
	assert.Equal(t, 1, searchState.OutputValue("scores").LengthInt())
}

func TestSearch_InvalidLimit(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	var alloc nodeid.Allocator
	search, err := r.New("Vector Search")
	require.NoError(t, err)
	st, err := node.Instantiate(context.Background(), search, 1, "Vector Search", &alloc, inmemoryattrs.New())
	require.NoError(t, err)

	require.NoError(t, st.SetInputValueFromLink("vector", vector(1)))
	require.NoError(t, st.SetWidgetValue("limit", cty.NumberIntVal(0)))
	assert.Error(t, search.Process(context.Background()))
}

func TestAdd_DimensionErrorOnStatus(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), DefaultCollection, Point{ID: "a", Vector: []float32{1, 0}}))

	r := registry.New()
	(&Module{Store: store}).Register(r)

	var alloc nodeid.Allocator
	add, err := r.New("Vector Add")
	require.NoError(t, err)
	st, err := node.Instantiate(context.Background(), add, 1, "Vector Add", &alloc, inmemoryattrs.New())
	require.NoError(t, err)

	require.NoError(t, st.SetWidgetValue("id", cty.StringVal("b")))
	require.NoError(t, st.SetInputValueFromLink("vector", vector(1, 0, 0)))
	require.NoError(t, add.Process(context.Background()))

	assert.Contains(t, st.OutputValue("status").AsString(), "dimension mismatch")
	assert.True(t, node.IsAbsent(st.OutputValue("point_id")))
}
