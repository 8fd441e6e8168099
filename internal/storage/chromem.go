package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// DefaultChromemCollection is the collection name used inside the chromem database.
const DefaultChromemCollection = "documents"

var errEmbeddingRequired = errors.New("entries must carry a precomputed embedding")

// ChromemStore is an embedded, file-backed vector store built on chromem-go.
// An empty path keeps everything in memory.
type ChromemStore struct {
	db        *chromem.DB
	path      string
	name      string
	dimension int

	mu   sync.RWMutex // guards coll across Reset
	coll *chromem.Collection
}

// NewChromemStore opens (or creates) the database at path and its collection.
// dimension must match the embedding model in use.
func NewChromemStore(path, collection string, dimension int) (*ChromemStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	if collection == "" {
		collection = DefaultChromemCollection
	}

	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: open chromem db at %s: %v", ErrUnreachable, path, err)
		}
	}

	s := &ChromemStore{db: db, path: path, name: collection, dimension: dimension}
	coll, err := s.open()
	if err != nil {
		return nil, err
	}
	s.coll = coll
	return s, nil
}

func (s *ChromemStore) open() (*chromem.Collection, error) {
	coll, err := s.db.GetOrCreateCollection(s.name, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", s.name, err)
	}
	return coll, nil
}

// precomputedOnly is the collection's embedding function. Embeddings are always
// produced by the pipeline's provider, so chromem is never asked to embed.
func precomputedOnly(_ context.Context, _ string) ([]float32, error) {
	return nil, errEmbeddingRequired
}

func (s *ChromemStore) collection() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll
}

// ListIDs ranks every document against a uniform probe vector; chromem has no
// ID listing call, but a query for Count() results returns them all.
func (s *ChromemStore) ListIDs(ctx context.Context) (map[string]struct{}, error) {
	coll := s.collection()
	n := coll.Count()
	ids := make(map[string]struct{}, n)
	if n == 0 {
		return ids, nil
	}

	results, err := coll.QueryEmbedding(ctx, s.probe(), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	for _, r := range results {
		ids[r.ID] = struct{}{}
	}
	return ids, nil
}

func (s *ChromemStore) probe() []float32 {
	v := make([]float32, s.dimension)
	component := float32(1 / math.Sqrt(float64(s.dimension)))
	for i := range v {
		v[i] = component
	}
	return v
}

// UpsertBatch adds documents; chromem replaces existing documents with the same ID.
func (s *ChromemStore) UpsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("entry %s: %w", e.ID, errEmbeddingRequired)
		}
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d",
				ErrDimensionMismatch, e.ID, len(e.Vector), s.dimension)
		}
		docs[i] = chromem.Document{
			ID:        e.ID,
			Metadata:  e.Metadata,
			Embedding: e.Vector,
			Content:   e.Text,
		}
	}

	if err := s.collection().AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *ChromemStore) QueryNearest(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	coll := s.collection()
	k = min(k, coll.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := coll.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: r.Metadata,
			Score:    float64(r.Similarity),
		})
	}
	return hits, nil
}

func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection().Count(), nil
}

// Reset drops the collection, including its files, and recreates it empty.
func (s *ChromemStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	coll, err := s.open()
	if err != nil {
		return err
	}
	s.coll = coll
	return nil
}

func (s *ChromemStore) Location() string {
	if s.path == "" {
		return "memory"
	}
	return s.path
}

// Close is a no-op; chromem persists every write immediately.
func (s *ChromemStore) Close() error { return nil }
