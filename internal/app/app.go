// Package app wires configuration into a ready-to-use pipeline and the
// adapters around it. Every binary builds exactly one App at startup.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bull/localrag/internal/answer"
	"github.com/bull/localrag/internal/config"
	"github.com/bull/localrag/internal/embedding"
	"github.com/bull/localrag/internal/generation"
	"github.com/bull/localrag/internal/github"
	"github.com/bull/localrag/internal/httpapi"
	"github.com/bull/localrag/internal/loader"
	mcpserver "github.com/bull/localrag/internal/mcp"
	"github.com/bull/localrag/internal/metrics"
	"github.com/bull/localrag/internal/pipeline"
	"github.com/bull/localrag/internal/session"
	"github.com/bull/localrag/internal/storage"
)

// SessionTTL is how long an idle conversation survives in Redis.
const SessionTTL = 24 * time.Hour

// App holds the long-lived components of a process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Recorder

	closers []func() error
}

// NewLogger returns a text logger on w at the configured level.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// New opens the vector store, builds the model providers and wires the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s vector store at %s: %w", cfg.VectorStore, cfg.BackingLocation(), err)
	}

	embedder, generator, err := NewProviders(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	recorder := metrics.NewRecorder()
	p, err := pipeline.New(store, embedder, generator, pipeline.Options{
		ChunkSize:           cfg.ChunkSize,
		ChunkOverlap:        cfg.ChunkOverlap,
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
		BatchSize:           cfg.BatchSize,
		MaxRetries:          cfg.MaxRetries,
		RetryDelay:          cfg.RetryDelay,
		Logger:              logger,
		Recorder:            recorder,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("Pipeline ready",
		"store", store.Location(),
		"provider", cfg.Provider,
		"embedding_model", cfg.EmbeddingModel,
		"generation_model", cfg.GenerationModel,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pipeline: p,
		Metrics:  recorder,
		closers:  []func() error{store.Close},
	}, nil
}

// OpenStore opens the configured vector store.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.VectorStore, error) {
	switch cfg.VectorStore {
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	case config.StoreQdrant:
		return storage.NewQdrantStore(ctx, storage.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.EmbeddingDimension,
		})
	case config.StoreChromem:
		return storage.NewChromemStore(cfg.BackingStorePath, storage.DefaultChromemCollection, cfg.EmbeddingDimension)
	default:
		return nil, fmt.Errorf("%w: unknown vector_store %q", config.ErrInvalid, cfg.VectorStore)
	}
}

// NewProviders builds the embedding and generation providers.
func NewProviders(cfg *config.Config, logger *slog.Logger) (pipeline.Embedder, answer.Generator, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		generator, err := generation.NewOllamaGenerator(cfg.OllamaURL, cfg.GenerationModel, logger)
		if err != nil {
			return nil, nil, err
		}
		return embedder, generator, nil

	case config.ProviderOpenAI:
		client, err := embedding.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
		if err != nil {
			return nil, nil, err
		}
		embedder := embedding.NewOpenAIEmbedder(client, cfg.EmbeddingModel, 0)
		generator := generation.NewOpenAIGenerator(client.Client(), cfg.GenerationModel, logger)
		return embedder, generator, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalid, cfg.Provider)
	}
}

// Sessions opens the configured conversation store.
func (a *App) Sessions(ctx context.Context) (session.Store, error) {
	if a.Config.SessionStore != config.SessionRedis {
		return session.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	store := session.NewRedisStore(client, SessionTTL)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return store, nil
}

// Source returns the document source for ingestion: a GitHub location of the
// form owner/repo[/path] when githubLoc is set, the data directory otherwise.
func (a *App) Source(githubLoc string) (loader.Source, error) {
	if githubLoc == "" {
		return loader.NewDirSource(a.Config.DataPath, a.Logger), nil
	}

	owner, repo, basePath, err := github.ParseLocation(githubLoc)
	if err != nil {
		return nil, err
	}
	client, err := github.NewClient(a.Config.GitHubToken)
	if err != nil {
		return nil, err
	}
	return loader.NewGitHubSource(github.NewFetcher(client, owner, repo, basePath), a.Logger), nil
}

// MCPServer exposes the pipeline as MCP tools.
func (a *App) MCPServer(version string) *mcpserver.Server {
	return mcpserver.NewServer(&mcpserver.Config{Pipeline: a.Pipeline, Version: version})
}

// HTTPServer builds the HTTP API with the MCP endpoint and metrics mounted.
func (a *App) HTTPServer(sessions session.Store, mcp *mcpserver.Server) (*httpapi.Server, error) {
	port, err := strconv.Atoi(a.Config.Port)
	if err != nil {
		return nil, fmt.Errorf("%w: port %q: %v", config.ErrInvalid, a.Config.Port, err)
	}

	cfg := &httpapi.Config{
		Host:           "0.0.0.0",
		Port:           port,
		Model:          a.Config.GenerationModel,
		EmbeddingModel: a.Config.EmbeddingModel,
		Metrics:        a.Metrics.Handler(),
	}
	if mcp != nil {
		cfg.MCP = mcpserver.NewHTTPHandler(mcp, &mcpserver.HTTPHandlerOptions{Stateless: true, Logger: a.Logger})
	}
	return httpapi.NewServer(a.Pipeline, sessions, a.Logger, cfg)
}

// Close releases the store and any session backend, in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
