package inmemorystore

import (
	"context"
	"sync"
	"testing"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/specialistvlad/nodegrid/internal/nodestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct {
	node.Base
}

func (n *stubNode) CreateInputs(d *node.Declarer) {}
func (n *stubNode) CreateOutputs(d *node.Declarer) {}
func (n *stubNode) Process(ctx context.Context) error { return nil }

func TestAddGetRemove(t *testing.T) {
	s := New()
	ctx := context.Background()
	n := &stubNode{}

	require.NoError(t, s.Add(ctx, 1, n))
	err := s.Add(ctx, 1, &stubNode{})
	require.ErrorIs(t, err, nodestore.ErrExists)

	got, ok := s.Get(ctx, 1)
	require.True(t, ok)
	assert.Same(t, n, got)

	removed, ok := s.Remove(ctx, 1)
	require.True(t, ok)
	assert.Same(t, n, removed)

	_, ok = s.Get(ctx, 1)
	assert.False(t, ok)
	_, ok = s.Remove(ctx, 1)
	assert.False(t, ok)
}

func TestIDsAreSorted(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []nodeid.NodeID{5, 2, 9, 1} {
		require.NoError(t, s.Add(ctx, id, &stubNode{}))
	}
	assert.Equal(t, []nodeid.NodeID{1, 2, 5, 9}, s.IDs(ctx))
	assert.Equal(t, 4, s.Len())
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(id nodeid.NodeID) {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, id, &stubNode{}))
			_, _ = s.Get(ctx, id)
			_ = s.IDs(ctx)
		}(nodeid.NodeID(i))
	}
	wg.Wait()
	assert.Equal(t, 100, s.Len())
}
