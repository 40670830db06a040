package env

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

func TestEnv(t *testing.T) {
	t.Setenv("NODEGRID_ENV_TEST", "hello")

	var alloc nodeid.Allocator
	n := &Env{}
	st, err := node.Instantiate(context.Background(), n, 1, "Env", &alloc, inmemoryattrs.New())
	require.NoError(t, err)

	require.NoError(t, st.SetWidgetValue("name", cty.StringVal("NODEGRID_ENV_TEST")))
	require.NoError(t, n.Process(context.Background()))

	assert.True(t, st.OutputValue("value").RawEquals(cty.StringVal("hello")))
	assert.True(t, st.OutputValue("found").True())
	all := st.OutputValue("all")
	assert.True(t, all.Index(cty.StringVal("NODEGRID_ENV_TEST")).RawEquals(cty.StringVal("hello")))

	require.NoError(t, st.SetWidgetValue("name", cty.StringVal("NODEGRID_ENV_MISSING")))
	require.NoError(t, n.Process(context.Background()))
	assert.False(t, st.OutputValue("found").True())
}
