// Package pipeline is the single entry point transports use: it ingests
// pages, answers questions and reports index statistics.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/localrag/internal/answer"
	"github.com/bull/localrag/internal/chunking"
	"github.com/bull/localrag/internal/indexer"
	"github.com/bull/localrag/internal/retrieval"
)

// Store is the vector store capability the pipeline is built on.
type Store interface {
	indexer.Store
	retrieval.Searcher
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Location() string
}

// Embedder embeds queries and chunk batches.
type Embedder interface {
	retrieval.Embedder
	indexer.Embedder
}

// Recorder receives per-call observations. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveAnswer(kind string, attempts int, elapsed time.Duration)
	ObserveIngest(added, existing int, failed bool)
}

// Options tunes the pipeline. Zero values fall back to the component defaults.
type Options struct {
	ChunkSize           int
	ChunkOverlap        int
	Separators          []string
	TopK                int
	SimilarityThreshold float64
	BatchSize           int
	MaxRetries          int
	RetryDelay          time.Duration
	Logger              *slog.Logger
	Recorder            Recorder
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		TopK:                3,
		SimilarityThreshold: 0.6,
		BatchSize:           indexer.DefaultBatchSize,
		MaxRetries:          answer.DefaultMaxRetries,
		RetryDelay:          answer.DefaultRetryDelay,
	}
}

// Stats describes the index.
type Stats struct {
	DocumentCount int    `json:"document_count"`
	BackingPath   string `json:"backing_path"`
}

// StatsUnavailableError is returned by Stats when the store cannot be reached.
type StatsUnavailableError struct {
	BackingPath string
	Err         error
}

func (e *StatsUnavailableError) Error() string {
	return fmt.Sprintf("stats unavailable for %s: %v", e.BackingPath, e.Err)
}

func (e *StatsUnavailableError) Unwrap() error { return e.Err }

// Pipeline composes chunking, indexing, retrieval and synthesis around one store.
// It holds no per-request state and is safe for concurrent use when its store,
// embedder and generator are.
type Pipeline struct {
	store       Store
	chunker     *chunking.Chunker
	writer      *indexer.Writer
	retriever   *retrieval.Retriever
	synthesizer *answer.Synthesizer
	topK        int
	threshold   float64
	logger      *slog.Logger
	recorder    Recorder
}

// New wires a pipeline. It fails with chunking.ErrInvalidConfig when the
// chunk parameters are unusable.
func New(store Store, embedder Embedder, generator answer.Generator, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultOptions().TopK
	}

	chunker, err := chunking.New(opts.ChunkSize, opts.ChunkOverlap, opts.Separators...)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		store:       store,
		chunker:     chunker,
		writer:      indexer.NewWriter(store, embedder, opts.BatchSize, logger),
		retriever:   retrieval.New(embedder, store),
		synthesizer: answer.NewSynthesizer(generator, opts.MaxRetries, opts.RetryDelay, logger),
		topK:        topK,
		threshold:   opts.SimilarityThreshold,
		logger:      logger,
		recorder:    opts.Recorder,
	}, nil
}

// Answer retrieves context for query and synthesizes a reply.
// Errors are limited to invalid queries and retrieval failures; generation
// failures come back as a KindGenerationFailed answer.
func (p *Pipeline) Answer(ctx context.Context, query string) (*answer.Answer, error) {
	start := time.Now()

	outcome, err := p.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	ans := p.synthesizer.Synthesize(ctx, query, outcome)
	ans.Elapsed = time.Since(start)

	p.logger.Info("Answered query",
		"outcome", ans.Kind,
		"sources", len(ans.Sources),
		"attempts", ans.Attempts,
		"elapsed", ans.Elapsed,
	)
	if p.recorder != nil {
		p.recorder.ObserveAnswer(string(ans.Kind), ans.Attempts, ans.Elapsed)
	}
	return ans, nil
}

// Search runs retrieval only.
func (p *Pipeline) Search(ctx context.Context, query string) (*retrieval.Outcome, error) {
	return p.retriever.Retrieve(ctx, query, p.topK, p.threshold)
}

// Ingest chunks pages and writes new chunks to the store.
func (p *Pipeline) Ingest(ctx context.Context, pages []chunking.Page) (*indexer.Report, error) {
	chunks := p.chunker.Split(pages)
	p.logger.Info("Chunked pages", "pages", len(pages), "chunks", len(chunks))

	report, err := p.writer.Ingest(ctx, chunks)
	if p.recorder != nil && report != nil {
		p.recorder.ObserveIngest(report.Added, report.Existing, err != nil)
	}
	return report, err
}

// Stats reports the number of stored chunks. When the store is unreachable
// the returned Stats still carries the backing path and err is a
// *StatsUnavailableError.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BackingPath: p.store.Location()}

	n, err := p.store.Count(ctx)
	if err != nil {
		return stats, &StatsUnavailableError{BackingPath: stats.BackingPath, Err: err}
	}
	stats.DocumentCount = n
	return stats, nil
}

// Reset removes every indexed chunk. It is the only way entries leave the store.
func (p *Pipeline) Reset(ctx context.Context) error {
	if err := p.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	p.logger.Info("Index reset", "location", p.store.Location())
	return nil
}
