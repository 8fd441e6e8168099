package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	testStoreContract(t, NewMemoryStore(), 4)
}

func TestMemoryStore_TiesKeepInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertBatch(ctx, []Entry{
		entry("b", unit(2, 0)),
		entry("a", unit(2, 0)),
		entry("c", unit(2, 0)),
	}))

	hits, err := s.QueryNearest(ctx, unit(2, 0), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{hits[0].ID, hits[1].ID, hits[2].ID})
}

func TestMemoryStore_CopiesVectors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	vec := []float32{1, 0}
	require.NoError(t, s.UpsertBatch(ctx, []Entry{entry("x", vec)}))
	vec[0], vec[1] = 0, 1

	hits, err := s.QueryNearest(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestCosine_ZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 0}))
}
