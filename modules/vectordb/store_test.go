package vectordb

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Search(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "docs", Point{ID: "x", Vector: []float32{1, 0}, Payload: "east"}))
	require.NoError(t, s.Upsert(ctx, "docs", Point{ID: "y", Vector: []float32{0, 1}, Payload: "north"}))
	require.NoError(t, s.Upsert(ctx, "docs", Point{ID: "z", Vector: []float32{-1, 0}, Payload: "west"}))

	got, err := s.Search(ctx, "docs", []float32{2, 0}, 2)
	require.NoError(t, err)

	expected := []Match{
		{ID: "x", Score: 1, Payload: "east"},
		{ID: "y", Score: 0, Payload: "north"},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("search mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "docs", Point{ID: "x", Vector: []float32{1, 0}, Payload: "old"}))
	require.NoError(t, s.Upsert(ctx, "docs", Point{ID: "x", Vector: []float32{1, 0}, Payload: "new"}))
	assert.Equal(t, 1, s.Len("docs"))

	got, err := s.Search(ctx, "docs", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Payload)
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "docs", Point{ID: "x", Vector: []float32{1, 0}}))

	assert.ErrorIs(t, s.Upsert(ctx, "docs", Point{ID: "y", Vector: []float32{1, 0, 0}}), ErrDimension)
	_, err := s.Search(ctx, "docs", []float32{1}, 1)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestMemoryStore_UnknownCollection(t *testing.T) {
	got, err := NewMemoryStore().Search(context.Background(), "missing", []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
}
