package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unit returns a dim-length vector pointing mostly along axis i.
func unit(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i%dim] = 1
	return v
}

func entry(id string, vec []float32) Entry {
	return Entry{ID: id, Text: "text of " + id, Vector: vec, Metadata: ChunkMetadata("doc", 0, 0)}
}

// testStoreContract exercises the behaviour every VectorStore must share.
func testStoreContract(t *testing.T, s VectorStore, dim int) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		ids, err := s.ListIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		hits, err := s.QueryNearest(ctx, unit(dim, 0), 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("upsert and list", func(t *testing.T) {
		err := s.UpsertBatch(ctx, []Entry{
			entry("doc:0:0", unit(dim, 0)),
			entry("doc:0:1", unit(dim, 1)),
			entry("doc:0:2", unit(dim, 2)),
		})
		require.NoError(t, err)

		ids, err := s.ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"doc:0:0": {}, "doc:0:1": {}, "doc:0:2": {}}, ids)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("upsert same id replaces", func(t *testing.T) {
		require.NoError(t, s.UpsertBatch(ctx, []Entry{entry("doc:0:0", unit(dim, 0))}))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("query orders by score", func(t *testing.T) {
		q := unit(dim, 1)
		q[2%dim] = 0.5

		hits, err := s.QueryNearest(ctx, q, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "doc:0:1", hits[0].ID)
		assert.Equal(t, "doc:0:2", hits[1].ID)
		assert.Greater(t, hits[0].Score, hits[1].Score)
		assert.InDelta(t, 0.894, hits[0].Score, 0.01)
		assert.Equal(t, "text of doc:0:1", hits[0].Text)
		assert.Equal(t, "doc", hits[0].Metadata[MetaSource])
	})

	t.Run("k larger than store", func(t *testing.T) {
		hits, err := s.QueryNearest(ctx, unit(dim, 0), 10)
		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := s.QueryNearest(ctx, make([]float32, dim+1), 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, s.Reset(ctx))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, s.UpsertBatch(ctx, []Entry{entry("after:0:0", unit(dim, 0))}))
		ids, err := s.ListIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "after:0:0")
	})
}
