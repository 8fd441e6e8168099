// Package indexer writes chunks into the vector store, embedding only the
// chunks that are not stored yet.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/localrag/internal/chunking"
	"github.com/bull/localrag/internal/storage"
)

// DefaultBatchSize is the number of chunks embedded and upserted together.
const DefaultBatchSize = 10

// Store is the subset of the vector store the writer needs.
type Store interface {
	ListIDs(ctx context.Context) (map[string]struct{}, error)
	UpsertBatch(ctx context.Context, entries []storage.Entry) error
}

// Embedder computes embeddings for a batch of texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Report summarises one ingestion run.
type Report struct {
	Total    int // Chunks submitted (after dropping duplicate IDs)
	Existing int // Chunks already present in the store
	Added    int // Chunks embedded and written during this run
	Batches  int // Batches committed
	Duration time.Duration
}

// StorageError reports an ingestion run aborted by an embedding or store failure.
// Batches committed before the failure stay in the store.
type StorageError struct {
	CommittedBatches int
	Added            int
	Err              error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ingestion aborted after %d committed batches (%d chunks added): %v",
		e.CommittedBatches, e.Added, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Writer adds new chunks to the store. It never re-embeds stored IDs and
// never deletes entries.
type Writer struct {
	store     Store
	embedder  Embedder
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a writer. If batchSize is 0, DefaultBatchSize is used.
func NewWriter(store Store, embedder Embedder, batchSize int, logger *slog.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Ingest stores every chunk whose ID is not yet present.
// On failure it returns the partial report together with a *StorageError.
func (w *Writer) Ingest(ctx context.Context, chunks []chunking.Chunk) (*Report, error) {
	start := time.Now()
	report := &Report{}

	existing, err := w.store.ListIDs(ctx)
	if err != nil {
		return report, &StorageError{Err: fmt.Errorf("list ids: %w", err)}
	}

	seen := make(map[string]struct{}, len(chunks))
	var fresh []chunking.Chunk
	for _, c := range chunks {
		id := c.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		report.Total++
		if _, ok := existing[id]; ok {
			report.Existing++
			continue
		}
		fresh = append(fresh, c)
	}

	w.logger.Info("Starting ingestion",
		"total", report.Total,
		"existing", report.Existing,
		"new", len(fresh),
	)

	for i := 0; i < len(fresh); i += w.batchSize {
		end := min(i+w.batchSize, len(fresh))

		if err := w.writeBatch(ctx, fresh[i:end]); err != nil {
			report.Duration = time.Since(start)
			return report, &StorageError{
				CommittedBatches: report.Batches,
				Added:            report.Added,
				Err:              fmt.Errorf("batch %d-%d: %w", i, end, err),
			}
		}

		report.Batches++
		report.Added += end - i
		w.logger.Info("Committed batch", "batch", report.Batches, "chunks", end-i)
	}

	report.Duration = time.Since(start)
	w.logger.Info("Ingestion complete",
		"added", report.Added,
		"batches", report.Batches,
		"duration", report.Duration,
	)
	return report, nil
}

func (w *Writer) writeBatch(ctx context.Context, batch []chunking.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embeddings: expected %d vectors, got %d", len(batch), len(vectors))
	}

	entries := make([]storage.Entry, len(batch))
	for i, c := range batch {
		entries[i] = storage.Entry{
			ID:       c.ID(),
			Text:     c.Text,
			Vector:   vectors[i],
			Metadata: storage.ChunkMetadata(c.SourceID, c.Page, c.Position),
		}
	}

	if err := w.store.UpsertBatch(ctx, entries); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
