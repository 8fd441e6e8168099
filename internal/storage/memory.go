package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore keeps entries in process memory. Used for tests and the
// "memory" backend; contents are lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string // insertion order, used to break score ties
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) ListIDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.entries))
	for id := range s.entries {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *MemoryStore) UpsertBatch(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if _, exists := s.entries[e.ID]; !exists {
			s.order = append(s.order, e.ID)
		}
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		e.Vector = vec
		s.entries[e.ID] = e
	}
	return nil
}

func (s *MemoryStore) QueryNearest(_ context.Context, vector []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		if len(e.Vector) != len(vector) {
			return nil, fmt.Errorf("%w: query has %d dimensions, entry %s has %d",
				ErrDimensionMismatch, len(vector), id, len(e.Vector))
		}
		hits = append(hits, Hit{
			ID:       e.ID,
			Text:     e.Text,
			Metadata: e.Metadata,
			Score:    cosine(vector, e.Vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	s.order = nil
	return nil
}

func (s *MemoryStore) Location() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }

// cosine returns 0 when either vector has zero magnitude.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
