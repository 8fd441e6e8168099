package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/localrag/internal/storage"
)

type stubEmbedder struct {
	calls int
	err   error
}

func (e *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	return []float32{1, 0}, e.err
}

type stubSearcher struct {
	hits  []storage.Hit
	gotK  int
	err   error
	calls int
}

func (s *stubSearcher) QueryNearest(_ context.Context, _ []float32, k int) ([]storage.Hit, error) {
	s.calls++
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.hits[:min(k, len(s.hits))], nil
}

func hits(scores ...float64) []storage.Hit {
	out := make([]storage.Hit, len(scores))
	for i, s := range scores {
		out[i] = storage.Hit{ID: string(rune('a' + i)), Text: "t", Score: s}
	}
	return out
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	emb := &stubEmbedder{}
	r := New(emb, &stubSearcher{})

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := r.Retrieve(t.Context(), q, 3, 0.5)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	}
	assert.Zero(t, emb.calls)
}

func TestRetrieve_Partitioning(t *testing.T) {
	tests := []struct {
		name      string
		hits      []storage.Hit
		threshold float64
		wantKind  Kind
		wantIDs   []string
	}{
		{"empty store", nil, 0.6, NoMatch, []string{}},
		{"all below threshold", hits(0.5, 0.4, 0.3, 0.2, 0.1), 0.9, LowConfidence, []string{"a", "b", "c"}},
		{"some pass", hits(0.9, 0.7, 0.5), 0.6, Matched, []string{"a", "b"}},
		{"score equal to threshold passes", hits(0.6), 0.6, Matched, []string{"a"}},
		{"all pass", hits(0.95, 0.91), 0.5, Matched, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&stubEmbedder{}, &stubSearcher{hits: tt.hits})
			out, err := r.Retrieve(t.Context(), "question", 5, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantIDs, out.SourceIDs())
		})
	}
}

func TestRetrieve_LowConfidenceCapsSuggestions(t *testing.T) {
	r := New(&stubEmbedder{}, &stubSearcher{hits: hits(0.5, 0.5, 0.5, 0.5, 0.5)})
	out, err := r.Retrieve(t.Context(), "q", 5, 0.9)
	require.NoError(t, err)
	assert.Len(t, out.Suggestions, MaxSuggestions)
	assert.Empty(t, out.Matches)
}

func TestRetrieve_PassesK(t *testing.T) {
	s := &stubSearcher{hits: hits(0.9)}
	_, err := New(&stubEmbedder{}, s).Retrieve(t.Context(), "q", 7, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 7, s.gotK)
}

func TestRetrieve_PropagatesFailures(t *testing.T) {
	boom := errors.New("boom")

	_, err := New(&stubEmbedder{err: boom}, &stubSearcher{}).Retrieve(t.Context(), "q", 3, 0.5)
	assert.ErrorIs(t, err, boom)

	_, err = New(&stubEmbedder{}, &stubSearcher{err: boom}).Retrieve(t.Context(), "q", 3, 0.5)
	assert.ErrorIs(t, err, boom)
}

func TestRetrieve_AgainstMemoryStore(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.UpsertBatch(t.Context(), []storage.Entry{
		{ID: "x:0:0", Text: "near", Vector: []float32{1, 0}},
		{ID: "x:0:1", Text: "far", Vector: []float32{0, 1}},
	}))

	out, err := New(&stubEmbedder{}, store).Retrieve(t.Context(), "q", 2, 0.8)
	require.NoError(t, err)
	require.Equal(t, Matched, out.Kind)
	require.Len(t, out.Matches, 1)
	assert.Equal(t, "near", out.Matches[0].Text)
}
