package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/nodegrid/internal/config"
	"github.com/specialistvlad/nodegrid/internal/statefile"
	"github.com/specialistvlad/nodegrid/internal/testutil"
	"github.com/specialistvlad/nodegrid/modules/arith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adders = `
node "first" {
  kind = "Add"
  inputs = {
    a = 2
    b = 3
  }
}

node "second" {
  kind = "Add"
  inputs = {
    b = 10
  }
}

link {
  from = "first.result"
  to   = "second.a"
}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Rate = 50
	cfg.JoinTimeout = time.Second
	return &cfg
}

func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewApp_CoreModules(t *testing.T) {
	a, _ := SetupAppTest(t, testConfig(t))

	for _, kind := range []string{"Add", "If", "Text", "Env", "LLM Chat", "Vector Search", "HTTP Request", "SocketIO Emit"} {
		_, ok := a.Registry().Lookup(kind)
		assert.True(t, ok, "kind %q should be registered", kind)
	}
}

func TestRun_TicksThenSavesState(t *testing.T) {
	cfg := testConfig(t)
	cfg.GraphPath = writeGraph(t, adders)
	cfg.Ticks = 3
	cfg.StateOut = filepath.Join(t.TempDir(), "state.json")

	a, logs := SetupAppTest(t, cfg, &arith.Module{})
	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, logs.String(), "Execution finished.")
	assert.Contains(t, logs.String(), "State saved.")

	ctx, _ := testutil.Context(t)
	doc, err := statefile.LoadFile(ctx, cfg.StateOut)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Links, 1)

	var second *statefile.NodeRecord
	for i := range doc.Nodes {
		if doc.Nodes[i].Label == "second" {
			second = &doc.Nodes[i]
		}
	}
	require.NotNil(t, second)
	outputs, err := second.Outputs.Decode()
	require.NoError(t, err)
	got, _ := outputs["result"].AsBigFloat().Float64()
	assert.Equal(t, 15.0, got)

	t.Run("restore", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StateIn = statePath(t, doc)
		cfg.Ticks = 1

		a, logs := SetupAppTest(t, cfg, &arith.Module{})
		require.NoError(t, a.Run(context.Background()))
		assert.Contains(t, logs.String(), "State restored.")
	})
}

// statePath saves doc to a fresh file and returns its path.
func statePath(t *testing.T, doc *statefile.Document) string {
	t.Helper()
	ctx, _ := testutil.Context(t)
	path := filepath.Join(t.TempDir(), "restore.json")
	require.NoError(t, statefile.SaveFile(ctx, path, doc))
	return path
}

func TestRun_Duration(t *testing.T) {
	cfg := testConfig(t)
	cfg.GraphPath = writeGraph(t, adders)
	cfg.Duration = 50 * time.Millisecond

	a, _ := SetupAppTest(t, cfg, &arith.Module{})
	start := time.Now()
	require.NoError(t, a.Run(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRun_ContextCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.GraphPath = writeGraph(t, adders)

	a, logs := SetupAppTest(t, cfg, &arith.Module{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))
	assert.Contains(t, logs.String(), "Interrupted, shutting down.")
}

func TestRun_LoadErrors(t *testing.T) {
	t.Run("missing graph", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.GraphPath = filepath.Join(t.TempDir(), "missing.hcl")
		cfg.Ticks = 1
		a, _ := SetupAppTest(t, cfg, &arith.Module{})
		err := a.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load graph")
	})

	t.Run("unknown kind", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.GraphPath = writeGraph(t, `node "x" { kind = "Nope" }`)
		cfg.Ticks = 1
		a, _ := SetupAppTest(t, cfg, &arith.Module{})
		err := a.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to apply graph")
	})

	t.Run("missing state", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StateIn = filepath.Join(t.TempDir(), "missing.json")
		cfg.Ticks = 1
		a, _ := SetupAppTest(t, cfg, &arith.Module{})
		err := a.Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, statefile.ErrNotFound)
	})
}
