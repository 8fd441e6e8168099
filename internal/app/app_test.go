package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/localrag/internal/answer"
	"github.com/bull/localrag/internal/config"
	"github.com/bull/localrag/internal/loader"
	"github.com/bull/localrag/internal/session"
	"github.com/bull/localrag/internal/storage"
)

// fakeOllama embeds every text as the same unit vector and always answers "Hello there."
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1, 0, 0}}})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"llama3.2:3b","message":{"role":"assistant","content":"Hello there."},"done":true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.VectorStore = config.StoreMemory
	cfg.OllamaURL = fakeOllama(t).URL
	cfg.EmbeddingDimension = 3
	cfg.RetryDelay = 0
	cfg.DataPath = t.TempDir()
	return &cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApp_IngestAndAnswer(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataPath, "notes.txt"), []byte("The launch is on Tuesday."), 0o644))

	a, err := New(t.Context(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	src, err := a.Source("")
	require.NoError(t, err)
	assert.IsType(t, &loader.DirSource{}, src)

	pages, err := src.Load(t.Context())
	require.NoError(t, err)

	report, err := a.Pipeline.Ingest(t.Context(), pages)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)

	ans, err := a.Pipeline.Answer(t.Context(), "When is the launch?")
	require.NoError(t, err)
	assert.Equal(t, answer.KindMatched, ans.Kind)
	assert.Equal(t, "Hello there.", ans.Text)
	assert.Len(t, ans.Sources, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.AnswersTotal.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.ChunksIngested.WithLabelValues("added")))
}

func TestNew_StoreErrorNamesLocation(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := testConfig(t)
	cfg.VectorStore = config.StoreChromem
	cfg.BackingStorePath = filepath.Join(blocker, "chroma")

	_, err := New(t.Context(), cfg, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnreachable)
	assert.ErrorContains(t, err, "chromem vector store at "+cfg.BackingStorePath)
}

func TestOpenStore(t *testing.T) {
	t.Run("chromem uses the backing path", func(t *testing.T) {
		cfg := config.Default()
		cfg.BackingStorePath = filepath.Join(t.TempDir(), "chroma")

		store, err := OpenStore(t.Context(), &cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		assert.Equal(t, cfg.BackingStorePath, store.Location())
	})

	t.Run("memory", func(t *testing.T) {
		cfg := config.Default()
		cfg.VectorStore = config.StoreMemory

		store, err := OpenStore(t.Context(), &cfg)
		require.NoError(t, err)
		assert.Equal(t, "memory", store.Location())
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.Default()
		cfg.VectorStore = "pinecone"

		_, err := OpenStore(t.Context(), &cfg)
		assert.ErrorIs(t, err, config.ErrInvalid)
	})
}

func TestNewProviders(t *testing.T) {
	t.Run("openai requires a key for the public API", func(t *testing.T) {
		cfg := config.Default()
		cfg.Provider = config.ProviderOpenAI
		cfg.OpenAIAPIKey = ""

		_, _, err := NewProviders(&cfg, discardLogger())
		assert.Error(t, err)
	})

	t.Run("openai-compatible local server", func(t *testing.T) {
		cfg := config.Default()
		cfg.Provider = config.ProviderOpenAI
		cfg.OpenAIBaseURL = "http://localhost:1234/v1"

		embedder, generator, err := NewProviders(&cfg, discardLogger())
		require.NoError(t, err)
		assert.NotNil(t, embedder)
		assert.NotNil(t, generator)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.Default()
		cfg.Provider = "bard"

		_, _, err := NewProviders(&cfg, discardLogger())
		assert.ErrorIs(t, err, config.ErrInvalid)
	})
}

func TestApp_Sessions(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		a, err := New(t.Context(), testConfig(t), discardLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		store, err := a.Sessions(t.Context())
		require.NoError(t, err)
		assert.IsType(t, &session.MemoryStore{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.SessionStore = config.SessionRedis
		cfg.RedisAddr = mr.Addr()

		a, err := New(t.Context(), cfg, discardLogger())
		require.NoError(t, err)

		store, err := a.Sessions(t.Context())
		require.NoError(t, err)
		assert.IsType(t, &session.RedisStore{}, store)
		assert.NoError(t, a.Close())
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.SessionStore = config.SessionRedis
		cfg.RedisAddr = mr.Addr()
		mr.Close()

		a, err := New(t.Context(), cfg, discardLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		_, err = a.Sessions(t.Context())
		assert.Error(t, err)
	})
}

func TestApp_GitHubSource(t *testing.T) {
	a, err := New(t.Context(), testConfig(t), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	src, err := a.Source("acme/handbook/docs")
	require.NoError(t, err)
	assert.Equal(t, "github.com/acme/handbook", src.Location())

	_, err = a.Source("not-a-repo")
	assert.Error(t, err)
}

func TestApp_HTTPServer(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(t.Context(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv, err := a.HTTPServer(session.NewMemoryStore(), a.MCPServer("test"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"document_count":0,"backing_path":"memory"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"model":"llama3.2:3b"`)
	assert.Contains(t, rec.Body.String(), `"embedding_model":"nomic-embed-text"`)

	cfg.Port = "eighty"
	_, err = a.HTTPServer(session.NewMemoryStore(), nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
