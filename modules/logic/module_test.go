package logic

import (
	"context"
	"testing"

	"github.com/specialistvlad/nodegrid/internal/inmemoryattrs"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func instantiate(t *testing.T, n node.Node) *node.State {
	t.Helper()
	var alloc nodeid.Allocator
	st, err := node.Instantiate(context.Background(), n, 1, "test", &alloc, inmemoryattrs.New())
	require.NoError(t, err)
	return st
}

func TestIf(t *testing.T) {
	n := &If{}
	st := instantiate(t, n)
	require.NoError(t, st.SetWidgetValue("then", cty.StringVal("yes")))
	require.NoError(t, st.SetWidgetValue("else", cty.StringVal("no")))

	require.NoError(t, n.Process(context.Background()))
	assert.True(t, st.OutputValue("result").RawEquals(cty.StringVal("no")))

	require.NoError(t, st.SetInputValueFromLink("cond", cty.True))
	require.NoError(t, n.Process(context.Background()))
	assert.True(t, st.OutputValue("result").RawEquals(cty.StringVal("yes")))
}

func TestCompare(t *testing.T) {
	testCases := []struct {
		op       string
		a, b     int64
		expected bool
	}{
		{op: ">", a: 3, b: 2, expected: true},
		{op: ">=", a: 2, b: 2, expected: true},
		{op: "<", a: 3, b: 2, expected: false},
		{op: "<=", a: 1, b: 2, expected: true},
		{op: "==", a: 2, b: 2, expected: true},
		{op: "!=", a: 2, b: 2, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.op, func(t *testing.T) {
			n := &Compare{}
			st := instantiate(t, n)
			require.NoError(t, st.SetWidgetValue("a", cty.NumberIntVal(tc.a)))
			require.NoError(t, st.SetWidgetValue("b", cty.NumberIntVal(tc.b)))
			require.NoError(t, st.SetWidgetValue("op", cty.StringVal(tc.op)))

			require.NoError(t, n.Process(context.Background()))
			assert.True(t, st.OutputValue("result").RawEquals(cty.BoolVal(tc.expected)))
		})
	}
}

func TestCompare_UnknownOperator(t *testing.T) {
	n := &Compare{}
	st := instantiate(t, n)
	require.NoError(t, st.SetWidgetValue("op", cty.StringVal("<>")))
	assert.Error(t, n.Process(context.Background()))
}
