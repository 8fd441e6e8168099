// Package storage holds the vector store adapters used by the pipeline.
package storage

import (
	"context"
	"strconv"
)

// Entry is an indexed chunk: its text, embedding and descriptive metadata,
// keyed on the chunk ID.
type Entry struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string // source, page, position
}

// Hit is a single nearest-neighbour result.
type Hit struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float64 // Cosine similarity, higher is closer
}

// Metadata keys written for every entry.
const (
	MetaSource   = "source"
	MetaPage     = "page"
	MetaPosition = "position"
)

// ChunkMetadata builds the metadata map stored alongside a chunk.
func ChunkMetadata(source string, page, position int) map[string]string {
	return map[string]string{
		MetaSource:   source,
		MetaPage:     strconv.Itoa(page),
		MetaPosition: strconv.Itoa(position),
	}
}

// VectorStore is implemented by every backend.
// Implementations must allow concurrent reads and serialize writes.
type VectorStore interface {
	// ListIDs returns the set of every stored entry ID.
	ListIDs(ctx context.Context) (map[string]struct{}, error)
	// UpsertBatch inserts or replaces entries by ID.
	UpsertBatch(ctx context.Context, entries []Entry) error
	// QueryNearest returns up to k entries ordered by descending score.
	QueryNearest(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
	// Reset removes every entry.
	Reset(ctx context.Context) error
	// Location describes where the data lives, for stats output.
	Location() string
	Close() error
}
